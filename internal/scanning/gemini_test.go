package scanning

import (
	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("candidateText", func() {
	It("concatenates the text parts of the first candidate", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{
					genai.Text(`{"storeName": `),
					genai.Text(`"スーパー"}`),
				}}},
			},
		}

		text, err := candidateText(resp)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(`{"storeName": "スーパー"}`))
	})

	It("returns ErrEmptyResponse when there are no candidates", func() {
		_, err := candidateText(&genai.GenerateContentResponse{})
		Expect(err).To(MatchError(ErrEmptyResponse))
	})

	It("returns ErrEmptyResponse for a candidate blocked without content", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: nil, FinishReason: genai.FinishReasonSafety},
			},
		}

		_, err := candidateText(resp)
		Expect(err).To(MatchError(ErrEmptyResponse))
	})

	It("returns ErrEmptyResponse for a candidate with no parts", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{}},
			},
		}

		_, err := candidateText(resp)
		Expect(err).To(MatchError(ErrEmptyResponse))
	})
})
