package answer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// DefaultMinQuoteLength is the shortest span, in runes, that can ground an answer.
const DefaultMinQuoteLength = 10

// edgePunct is stripped from both ends of a span before matching.
const edgePunct = ".,;:!? "

var quoteFolder = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	"‘", "'", "’", "'", "‚", "'", "′", "'",
)

// declinePrefixes mark a candidate as a non-answer. Compared against normalized
// text, so each phrase must be specific enough not to open a real answer.
var declinePrefixes = []string{
	"i don't know",
	"i do not know",
	"i don't have",
	"i do not have",
	"i cannot answer",
	"i can't answer",
	"i'm not sure",
	"not in the context",
	"the context does not",
	"the context doesn't",
	"there is no information",
	"no information about",
	"no information on",
	"no information is available",
	"cannot be answered",
	"unable to answer",
	"insufficient information",
}

// Normalize applies the matching rule used on both candidate and evidence:
// Unicode case folding, typographic quotes folded to ASCII, whitespace runs
// collapsed to a single space, and the result trimmed.
func Normalize(s string) string {
	s = cases.Fold().String(s)
	s = quoteFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Validator checks that a candidate answer quotes its evidence verbatim.
// It is the only component that approves an answer.
type Validator struct {
	MinQuoteLength int
}

// NewValidator returns a validator; values below 1 use DefaultMinQuoteLength.
func NewValidator(minQuoteLength int) *Validator {
	if minQuoteLength < 1 {
		minQuoteLength = DefaultMinQuoteLength
	}
	return &Validator{MinQuoteLength: minQuoteLength}
}

// Validate decides whether candidate is grounded in evidence. It is pure and
// returns the same Verdict for the same inputs.
func (v *Validator) Validate(candidate string, evidence EvidenceSet) Verdict {
	normalized := Normalize(candidate)
	if isDeclined(normalized) {
		return Verdict{Accepted: false, RejectionReason: ReasonEmptyOrDeclined}
	}

	minLen := v.MinQuoteLength
	if minLen < 1 {
		minLen = DefaultMinQuoteLength
	}

	texts := make([]string, len(evidence))
	for i, h := range evidence {
		if h.Chunk != nil {
			texts[i] = Normalize(h.Chunk.Text)
		}
	}

	for _, span := range extractSpans(normalized) {
		if utf8.RuneCountInString(span) < minLen {
			continue
		}

		var matched []string
		for i, text := range texts {
			if strings.Contains(text, span) {
				matched = append(matched, evidence[i].ChunkID())
			}
		}
		if len(matched) > 0 {
			return Verdict{
				Accepted:        true,
				QuotedSpan:      span,
				MatchedChunkIDs: matched,
			}
		}
	}

	return Verdict{Accepted: false, RejectionReason: ReasonNoQuotedEvidence}
}

// extractSpans returns the quoted spans of a normalized candidate, longest
// first and stable by appearance. Without any quote the whole text is one span.
// Only double quotes delimit: single quotes double as apostrophes and cannot be
// paired reliably.
func extractSpans(normalized string) []string {
	var spans []string

	if !strings.Contains(normalized, `"`) {
		if s := trimSpan(normalized); s != "" {
			spans = append(spans, s)
		}
		return spans
	}

	// Odd parts sit between quote pairs; a trailing unmatched quote yields no span.
	parts := strings.Split(normalized, `"`)
	for i := 1; i+1 < len(parts); i += 2 {
		if s := trimSpan(parts[i]); s != "" {
			spans = append(spans, s)
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return utf8.RuneCountInString(spans[i]) > utf8.RuneCountInString(spans[j])
	})
	return spans
}

func trimSpan(s string) string {
	return strings.Trim(s, edgePunct)
}

func isDeclined(normalized string) bool {
	bare := strings.Trim(normalized, edgePunct+`"'`)
	if bare == "" {
		return true
	}
	if bare == strings.ToLower(NotFoundSentinel) {
		return true
	}
	for _, p := range declinePrefixes {
		if strings.HasPrefix(bare, p) {
			return true
		}
	}
	return false
}
