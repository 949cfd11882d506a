package openai

import (
	"fmt"
	"strings"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// RefusalAnswer is the exact phrase the model is told to use when the
// supplied documents do not contain the answer. Callers compare against
// it verbatim, so it must not change without coordinating with them.
const RefusalAnswer = "Apologies, that query cannot be answered using the supplied documents."

const systemPrompt = `You are an assistant answering questions about HR policies.
Answer only from the policy extracts supplied by the user.
If the extracts do not contain the answer, reply exactly:
` + RefusalAnswer + `
Do not invent policy details. Keep answers short and factual.`

func buildAnswerPrompt(question string, docs []domain.Document) string {
	var contextBuilder strings.Builder
	for idx, doc := range docs {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] title=%s score=%.3f\n%s\n\n",
			idx+1,
			doc.Title(),
			doc.Score,
			doc.Content,
		))
	}

	return fmt.Sprintf(`Question:
%s

Policy extracts:
%s`, question, contextBuilder.String())
}
