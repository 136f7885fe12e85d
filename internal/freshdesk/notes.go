package freshdesk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

// notePolicy strips any markup the model smuggled into free text before it
// lands inside a private note.
var notePolicy = bluemonday.StrictPolicy()

func sanitize(s string) string {
	return notePolicy.Sanitize(s)
}

// MergeTags combines existing and new tags into a sorted, deduplicated set.
// Existing tags are never dropped.
func MergeTags(existing, added []string) []string {
	set := make(map[string]struct{}, len(existing)+len(added))
	for _, t := range existing {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	for _, t := range added {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	merged := make([]string, 0, len(set))
	for t := range set {
		merged = append(merged, t)
	}
	sort.Strings(merged)
	return merged
}

// HasProcessedTag reports whether a previous run already finished this
// ticket. Such tickets get no note and no tag update at all.
func HasProcessedTag(tags []string) bool {
	for _, t := range tags {
		if t == "processed" {
			return true
		}
	}
	return false
}

func banner(outcome ticket.Outcome) string {
	switch outcome {
	case ticket.OutcomeResolved:
		return "Draft ready for review"
	case ticket.OutcomeNeedsInfo:
		return "Waiting on customer information"
	case ticket.OutcomeLowConfidence:
		return "Low confidence match, review needed"
	case ticket.OutcomeSystemError:
		return "Processing failed"
	default:
		return "Review needed"
	}
}

func section(b *strings.Builder, title, body string, open bool) {
	if open {
		b.WriteString("<details open>")
	} else {
		b.WriteString("<details>")
	}
	b.WriteString("<summary><strong>")
	b.WriteString(title)
	b.WriteString("</strong></summary><div>")
	b.WriteString(body)
	b.WriteString("</div></details>\n")
}

// BuildResolutionNote renders the private note for a fully processed ticket:
// a status banner plus collapsible sections for the analysis, the draft
// response, outstanding asks, and the decision metrics.
func BuildResolutionNote(st *ticket.State, res ticket.Resolution) string {
	var b strings.Builder
	b.WriteString("<div><p><strong>")
	b.WriteString(banner(res.Outcome))
	b.WriteString("</strong> (")
	b.WriteString(string(res.Outcome))
	b.WriteString(")</p>\n")

	analysis := sanitize(res.Summary)
	if st.Classification != nil {
		analysis += fmt.Sprintf("<br>Category: %s (%s, confidence %.2f)",
			sanitize(string(st.Classification.Category)),
			sanitize(string(st.Classification.Method)),
			st.Classification.Confidence)
	}
	if st.Product != nil {
		analysis += fmt.Sprintf("<br>Identified product: %s via %s",
			sanitize(st.Product.Model), sanitize(st.Product.Source))
	}
	section(&b, "Summary and analysis", analysis, true)

	if st.AgentResult != nil && st.AgentResult.FinalAnswer != "" {
		draft := "<pre>" + sanitize(st.AgentResult.FinalAnswer) + "</pre>"
		section(&b, "Draft response", draft, res.Outcome == ticket.OutcomeResolved)
	}

	if st.Constraints != nil && len(st.Constraints.RequiredAsks) > 0 {
		var asks strings.Builder
		asks.WriteString("<ul>")
		for _, a := range st.Constraints.RequiredAsks {
			asks.WriteString("<li>" + sanitize(a) + "</li>")
		}
		asks.WriteString("</ul>")
		for _, c := range st.Constraints.Citations {
			asks.WriteString("<p><em>" + sanitize(c) + "</em></p>")
		}
		section(&b, "Missing information", asks.String(), res.Outcome == ticket.OutcomeNeedsInfo)
	}

	section(&b, "Decision metrics", metricsList(st), false)

	b.WriteString("</div>")
	return b.String()
}

func metricsList(st *ticket.State) string {
	var b strings.Builder
	b.WriteString("<ul>")
	if st.ProductDecision != nil {
		b.WriteString(fmt.Sprintf("<li>Product confidence: %.2f (%s)</li>",
			st.ProductDecision.FinalConfidence, sanitize(st.ProductDecision.Rule)))
		if st.ProductDecision.HasConflict {
			b.WriteString("<li>Evidence conflict detected</li>")
		}
	}
	if st.AgentResult != nil {
		b.WriteString(fmt.Sprintf("<li>Agent confidence: %.2f</li>", st.AgentResult.Confidence))
		b.WriteString(fmt.Sprintf("<li>Enough information: %t</li>", st.AgentResult.EnoughInfo))
		b.WriteString(fmt.Sprintf("<li>Iterations: %d</li>", st.AgentResult.Iterations))
	}
	b.WriteString("</ul>")
	return b.String()
}

// BuildSkipNote renders the short private note for tickets that bypass the
// agent pipeline entirely.
func BuildSkipNote(category ticket.Category, reason string) string {
	var b strings.Builder
	b.WriteString("<div><p><strong>Automated triage</strong></p>")
	b.WriteString("<p>Category: " + sanitize(string(category)) + "</p>")
	if reason != "" {
		b.WriteString("<p>" + sanitize(reason) + "</p>")
	}
	b.WriteString("</div>")
	return b.String()
}
