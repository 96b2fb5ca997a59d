package investigation

import (
	"strings"
	"unicode/utf8"

	"github.com/c360studio/agentconsole/client"
)

// Sentence length bounds (in runes) for findings extraction. Fragments
// shorter than the minimum carry no signal; anything past the maximum is a
// paste, not a sentence.
const (
	minSentenceLen = 20
	maxSentenceLen = 500
)

// maxPerCategory caps how many sentences each category keeps.
const maxPerCategory = 3

// Findings is the classified output of an investigation, consumed by report
// exporters. Each sentence lands in at most one category.
type Findings struct {
	Findings        []string `json:"findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Insights        []string `json:"insights,omitempty"`
}

// Classification keyword sets, checked in priority order: a sentence that
// matches both a finding keyword and a recommendation keyword is a finding.
var (
	findingKeywords = []string{
		"found", "detected", "identified", "discovered", "observed",
		"error", "failure", "failed", "root cause", "broken", "crash",
	}
	recommendationKeywords = []string{
		"recommend", "should", "suggest", "advise", "consider",
		"needs to", "must be",
	}
	insightKeywords = []string{
		"indicates", "appears", "likely", "correlat", "pattern",
		"consistent with", "points to",
	}
)

// Extract pulls findings from an investigation's assistant messages. It
// prefers the integrated snapshot for each plan agent and falls back to the
// live store when no snapshot was taken.
func Extract(inv *Investigation, store MessageSource) Findings {
	var out Findings
	seen := make(map[string]struct{})

	for i := range inv.Agents {
		agentName := inv.ResolvedAgent(i)
		msgs, ok := inv.Snapshots[agentName]
		if !ok && store != nil {
			msgs = store.Messages(agentName)
		}
		for _, msg := range msgs {
			if msg.Role != client.RoleAssistant {
				continue
			}
			for _, sentence := range splitSentences(msg.Content) {
				if _, dup := seen[sentence]; dup {
					continue
				}
				if !classify(&out, sentence) {
					continue
				}
				seen[sentence] = struct{}{}
			}
		}
	}
	return out
}

// classify appends the sentence to the first matching category with room
// left. Returns false when the sentence matched nothing.
func classify(out *Findings, sentence string) bool {
	lower := strings.ToLower(sentence)
	switch {
	case matchesAny(lower, findingKeywords):
		if len(out.Findings) < maxPerCategory {
			out.Findings = append(out.Findings, sentence)
		}
	case matchesAny(lower, recommendationKeywords):
		if len(out.Recommendations) < maxPerCategory {
			out.Recommendations = append(out.Recommendations, sentence)
		}
	case matchesAny(lower, insightKeywords):
		if len(out.Insights) < maxPerCategory {
			out.Insights = append(out.Insights, sentence)
		}
	default:
		return false
	}
	return true
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitSentences breaks message content on sentence terminators and
// newlines, keeping only sentences inside the length bounds.
func splitSentences(content string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if n := utf8.RuneCountInString(s); n >= minSentenceLen && n <= maxSentenceLen {
			sentences = append(sentences, s)
		}
	}

	for _, r := range content {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			flush()
		case '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return sentences
}
