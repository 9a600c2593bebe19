package answer

import (
	"fmt"
	"strings"

	"github.com/Yates-Labs/verbatim/internal/rag"
)

// NotFoundSentinel is the exact reply the generator is told to give when
// the context has no answer.
const NotFoundSentinel = "NOT_FOUND"

// Admit selects the evidence for the prompt: the first topK hits in rank
// order plus any later hit tying the top score. Hits must already be ranked.
func Admit(hits []rag.Hit, topK int) EvidenceSet {
	if len(hits) == 0 {
		return EvidenceSet{}
	}
	if topK < 1 {
		topK = 1
	}

	top := hits[0].Similarity
	evidence := make(EvidenceSet, 0, min(topK, len(hits)))
	for i, h := range hits {
		if i < topK || h.Similarity == top {
			evidence = append(evidence, h)
		}
	}
	return evidence
}

// Compose renders the fixed answering instruction, the evidence blocks in
// rank order and the question. Each block is tagged with its chunk id.
func Compose(evidence EvidenceSet, question string) string {
	var b strings.Builder

	b.WriteString("You are a customer support assistant. Answer the question using ONLY the context below.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Do not use any knowledge outside the context.\n")
	b.WriteString("- Copy the sentence that supports your answer word for word and put it inside double quotes.\n")
	b.WriteString(fmt.Sprintf("- If the context does not contain the answer, reply exactly: %s\n\n", NotFoundSentinel))

	b.WriteString("Context:\n")
	if len(evidence) == 0 {
		b.WriteString("(no context)\n")
	}
	for _, h := range evidence {
		label := ""
		if h.Chunk != nil {
			label = h.Chunk.SourceLabel
		}
		b.WriteString(fmt.Sprintf("[%s] (source: %s)\n", h.ChunkID(), label))
		if h.Chunk != nil {
			b.WriteString(strings.TrimSpace(h.Chunk.Text))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("Question: %s\n", strings.TrimSpace(question)))
	b.WriteString("Answer:")

	return b.String()
}
