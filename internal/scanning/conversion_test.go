package scanning

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodeDataURL", func() {
	var (
		input    string
		data     []byte
		mimeType string
		err      error
	)

	JustBeforeEach(func() {
		data, mimeType, err = DecodeDataURL(input)
	})

	When("decoding a PNG data URL", func() {
		BeforeEach(func() {
			input = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the raw bytes", func() {
			Expect(data).To(Equal([]byte("png-bytes")))
		})

		It("should return the declared MIME type", func() {
			Expect(mimeType).To(Equal("image/png"))
		})
	})

	When("decoding bare base64 without a prefix", func() {
		BeforeEach(func() {
			input = base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
		})

		It("should assume JPEG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("jpeg-bytes")))
			Expect(mimeType).To(Equal("image/jpeg"))
		})
	})

	When("the data URL has no comma", func() {
		BeforeEach(func() {
			input = "data:image/png;base64"
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the payload is not base64", func() {
		BeforeEach(func() {
			input = "data:image/png;base64,%%%not-base64%%%"
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the heic ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		data = append(data, make([]byte, 8)...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("rejects short data", func() {
		Expect(isHEICFormat([]byte("tiny"))).To(BeFalse())
	})

	It("rejects PNG data", func() {
		Expect(isHEICFormat([]byte("\x89PNG\r\n\x1a\n0123456789"))).To(BeFalse())
	})
})
