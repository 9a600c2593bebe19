// Package answer holds the decision logic between retrieval and generation:
// the confidence gate, prompt composition, evidence validation and the
// response contract. Everything here is pure; all I/O lives in the pipeline.
package answer

import (
	"math"

	"github.com/Yates-Labs/verbatim/internal/rag"
)

// RejectionReason classifies a refusal.
type RejectionReason string

const (
	ReasonLowConfidence    RejectionReason = "LOW_CONFIDENCE"
	ReasonNoQuotedEvidence RejectionReason = "NO_QUOTED_EVIDENCE"
	ReasonEmptyOrDeclined  RejectionReason = "EMPTY_OR_DECLINED"
)

// Message returns the user-facing text placed in Response.Reason.
func (r RejectionReason) Message() string {
	switch r {
	case ReasonLowConfidence:
		return "retrieval confidence below threshold"
	case ReasonEmptyOrDeclined:
		return "generator returned no usable answer"
	default:
		return "no quoted evidence found"
	}
}

// GateDecision is the confidence gate's result for one query.
type GateDecision struct {
	Pass       bool    `json:"pass"`
	Confidence float64 `json:"confidence"`
}

// EvidenceSet is the ordered list of hits admitted into the prompt.
type EvidenceSet []rag.Hit

// ChunkIDs returns the evidence chunk ids in rank order.
func (e EvidenceSet) ChunkIDs() []string {
	ids := make([]string, 0, len(e))
	for _, h := range e {
		ids = append(ids, h.ChunkID())
	}
	return ids
}

// Contains reports whether id is part of the evidence.
func (e EvidenceSet) Contains(id string) bool {
	for _, h := range e {
		if h.ChunkID() == id {
			return true
		}
	}
	return false
}

// Verdict is the evidence validator's decision on a candidate answer.
type Verdict struct {
	Accepted        bool            `json:"accepted"`
	QuotedSpan      string          `json:"quoted_span,omitempty"`
	MatchedChunkIDs []string        `json:"matched_chunk_ids,omitempty"`
	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
}

// Response is the externally visible answer contract.
// Answer and Reason serialize as null when absent; Sources is never null.
type Response struct {
	Answer     *string  `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	Reason     *string  `json:"reason"`
}

// Answered reports whether the response carries an answer.
func (r Response) Answered() bool {
	return r.Answer != nil
}

// clampConfidence maps a raw similarity into [0, 1]. NaN becomes 0.
func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
