package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/attachment"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

const (
	maxBodyRunes          = 2000
	maxContextAttachments = 5
	maxContextSteps       = 5
	maxThoughtChars       = 150
	maxObservationChars   = 200

	// Rough len/4 token estimate; prompts over this get their transcript
	// section trimmed first.
	contextTokenBudget = 6000
)

// buildMessages assembles the oracle conversation for one loop iteration:
// a system message describing the tools and the response contract, and a
// user message carrying the ticket plus a bounded transcript of prior steps.
func buildMessages(st *ticket.State, reg *tools.Registry, iteration, maxIterations int) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt(reg, st.Constraints)},
		{Role: "user", Content: userPrompt(st, iteration, maxIterations)},
	}
}

func systemPrompt(reg *tools.Registry, constraints *ticket.ConstraintResult) string {
	var b strings.Builder
	b.WriteString("You are a support resolution agent for plumbing products. ")
	b.WriteString("Identify the product the customer is asking about, gather the facts needed to resolve the ticket, and decide whether it can be resolved.\n\n")

	b.WriteString("Available tools:\n")
	listed := reg.List()
	sort.Slice(listed, func(i, j int) bool { return listed[i].Name() < listed[j].Name() })
	for _, tl := range listed {
		fmt.Fprintf(&b, "- %s: %s\n", tl.Name(), tl.Description())
	}

	b.WriteString("\nRespond with exactly one JSON object per turn. To use a tool:\n")
	b.WriteString(`{"thought": "...", "action": "<tool name>", "action_input": {...}}` + "\n")
	b.WriteString("To end the run:\n")
	b.WriteString(`{"thought": "...", "action": "finish", "final_answer": "...", "confidence": 0.0-1.0, "enough_info": true|false, "request_info": true|false, "escalate": true|false}` + "\n")
	b.WriteString("Set request_info when the customer must supply more details, escalate when a human should take over.\n")

	if constraints != nil && !constraints.Skipped {
		if len(constraints.RequiredAsks) > 0 {
			b.WriteString("\nIf you request more information, you must ask for: ")
			b.WriteString(strings.Join(constraints.RequiredAsks, ", "))
			b.WriteString(".\n")
		}
		if len(constraints.MustNotAsk) > 0 {
			b.WriteString("Never ask for: ")
			b.WriteString(strings.Join(constraints.MustNotAsk, ", "))
			b.WriteString(" (already provided).\n")
		}
	}
	return b.String()
}

func userPrompt(st *ticket.State, iteration, maxIterations int) string {
	tk := st.Ticket
	var b strings.Builder

	b.WriteString("[TICKET]\n")
	fmt.Fprintf(&b, "Subject: %s\n", tk.Subject)
	fmt.Fprintf(&b, "Body:\n%s\n", truncateRunes(tk.Text, maxBodyRunes))

	if urls := tk.ImageURLs(); len(urls) > 0 {
		b.WriteString("\n[IMAGES]\n")
		for _, u := range urls {
			b.WriteString(u)
			b.WriteByte('\n')
		}
	}

	if len(tk.Attachments) > 0 {
		b.WriteString("\n[ATTACHMENTS]\n")
		atts := tk.Attachments
		if len(atts) > maxContextAttachments {
			atts = atts[:maxContextAttachments]
		}
		for _, a := range atts {
			b.WriteString(attachment.Summarize(a))
			b.WriteByte('\n')
		}
	}

	if st.Classification != nil {
		fmt.Fprintf(&b, "\nCategory: %s\n", st.Classification.Category)
	}

	writeTranscript(&b, st.Steps, maxObservationChars)

	fmt.Fprintf(&b, "\nIteration %d of %d.\n", iteration+1, maxIterations)
	switch {
	case iteration >= maxIterations-1:
		b.WriteString("This is the final iteration. You must finish now with your best answer.\n")
	case iteration == maxIterations-2:
		b.WriteString("Only one iteration remains after this one. Wrap up.\n")
	}

	prompt := b.String()
	if len(prompt)/4 > contextTokenBudget {
		// Rebuild with a tighter transcript before giving up on the budget.
		var tb strings.Builder
		writeTranscript(&tb, st.Steps, maxObservationChars/2)
		prompt = strings.Replace(prompt, transcriptSection(st.Steps, maxObservationChars), tb.String(), 1)
	}
	return prompt
}

// writeTranscript appends the last few agent steps so the oracle sees what it
// already tried without replaying full tool output.
func writeTranscript(b *strings.Builder, steps []ticket.AgentStep, obsLimit int) {
	if len(steps) == 0 {
		return
	}
	b.WriteString("\n[PREVIOUS STEPS]\n")
	start := 0
	if len(steps) > maxContextSteps {
		start = len(steps) - maxContextSteps
	}
	for _, s := range steps[start:] {
		fmt.Fprintf(b, "%d. thought: %s\n   action: %s\n   observation: %s\n",
			s.Iteration+1,
			truncateRunes(s.Thought, maxThoughtChars),
			s.Action,
			truncateRunes(s.Observation, obsLimit))
	}
}

func transcriptSection(steps []ticket.AgentStep, obsLimit int) string {
	var b strings.Builder
	writeTranscript(&b, steps, obsLimit)
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
