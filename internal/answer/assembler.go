package answer

import "strings"

// Assemble builds the response contract from the gate decision, the verdict
// (nil when generation never ran) and the evidence. It never fails: every
// input maps to a well-formed Response.
func Assemble(gate GateDecision, verdict *Verdict, evidence EvidenceSet, candidate string) Response {
	confidence := clampConfidence(gate.Confidence)

	if !gate.Pass {
		return refusal(confidence, ReasonLowConfidence)
	}
	if verdict == nil {
		return refusal(confidence, ReasonEmptyOrDeclined)
	}
	if !verdict.Accepted {
		reason := verdict.RejectionReason
		if reason == "" {
			reason = ReasonNoQuotedEvidence
		}
		return refusal(confidence, reason)
	}

	sources := citedSources(verdict.MatchedChunkIDs, evidence)
	text := strings.TrimSpace(candidate)
	if len(sources) == 0 || text == "" {
		return refusal(confidence, ReasonNoQuotedEvidence)
	}

	return Response{
		Answer:     &text,
		Sources:    sources,
		Confidence: confidence,
		Reason:     nil,
	}
}

func refusal(confidence float64, reason RejectionReason) Response {
	msg := reason.Message()
	return Response{
		Answer:     nil,
		Sources:    []string{},
		Confidence: confidence,
		Reason:     &msg,
	}
}

// citedSources keeps matched ids that are in the evidence, in evidence order, once each.
func citedSources(matched []string, evidence EvidenceSet) []string {
	want := make(map[string]bool, len(matched))
	for _, id := range matched {
		want[id] = true
	}

	sources := []string{}
	for _, h := range evidence {
		id := h.ChunkID()
		if want[id] {
			sources = append(sources, id)
			delete(want, id)
		}
	}
	return sources
}
