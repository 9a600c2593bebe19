package answer

import "github.com/Yates-Labs/verbatim/internal/rag"

// Evaluate decides whether retrieval is confident enough to generate.
// Confidence is the top hit's similarity; an empty hit list never passes.
func Evaluate(hits []rag.Hit, threshold float64) GateDecision {
	if len(hits) == 0 {
		return GateDecision{Pass: false, Confidence: 0}
	}

	top := hits[0].Similarity
	for _, h := range hits[1:] {
		if h.Similarity > top {
			top = h.Similarity
		}
	}

	return GateDecision{
		Pass:       top >= threshold,
		Confidence: top,
	}
}
