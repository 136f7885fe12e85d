package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

// Kind discriminates the Result union. Exactly one payload field is set per
// kind.
type Kind string

const (
	KindProductMatch  Kind = "product_match"
	KindDocumentHit   Kind = "document_hit"
	KindVisionMatch   Kind = "vision_match"
	KindTicketMatch   Kind = "ticket_match"
	KindImageAnalysis Kind = "image_analysis"
	KindFacts         Kind = "facts"
	KindText          Kind = "text"
)

// Result is the tagged union every tool returns. Raw carries the payload
// re-marshalled for the transcript and audit log.
type Result struct {
	Kind Kind `json:"kind"`

	Products  []search.ProductHit   `json:"products,omitempty"`
	Documents []search.DocumentHit  `json:"documents,omitempty"`
	Tickets   []search.TicketHit    `json:"tickets,omitempty"`
	Analysis  *search.ImageAnalysis `json:"analysis,omitempty"`
	Facts     map[string]string     `json:"facts,omitempty"`
	Text      string                `json:"text,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// seal fills Raw from the struct itself. Tools call this before returning.
func (r *Result) seal() *Result {
	raw, err := json.Marshal(r)
	if err == nil {
		r.Raw = raw
	}
	return r
}

// Summary renders a short observation line for the agent transcript.
func (r *Result) Summary() string {
	switch r.Kind {
	case KindProductMatch, KindVisionMatch:
		if len(r.Products) == 0 {
			return "no matching products found"
		}
		parts := make([]string, 0, len(r.Products))
		for _, p := range r.Products {
			parts = append(parts, fmt.Sprintf("%s (%s, score %.1f)", p.Model, p.Name, p.Score))
		}
		return "matches: " + strings.Join(parts, "; ")
	case KindDocumentHit:
		if len(r.Documents) == 0 {
			return "no matching documents found"
		}
		parts := make([]string, 0, len(r.Documents))
		for _, d := range r.Documents {
			parts = append(parts, fmt.Sprintf("%s (score %.2f)", d.Title, d.Score))
		}
		return "documents: " + strings.Join(parts, "; ")
	case KindTicketMatch:
		if len(r.Tickets) == 0 {
			return "no similar past tickets found"
		}
		parts := make([]string, 0, len(r.Tickets))
		for _, tk := range r.Tickets {
			parts = append(parts, fmt.Sprintf("#%d %q resolved: %s (score %.2f)", tk.TicketID, tk.Subject, tk.Resolution, tk.Score))
		}
		return "similar tickets: " + strings.Join(parts, "; ")
	case KindImageAnalysis:
		a := r.Analysis
		if a == nil {
			return "no analysis produced"
		}
		s := fmt.Sprintf("%s (confidence %.2f): %s", a.ImageType, a.Confidence, a.Description)
		if len(a.ModelNumbers) > 0 {
			s += "; model numbers: " + strings.Join(a.ModelNumbers, ", ")
		}
		if len(a.OrderNumbers) > 0 {
			s += "; order numbers: " + strings.Join(a.OrderNumbers, ", ")
		}
		return s
	case KindFacts:
		if len(r.Facts) == 0 {
			return "no facts extracted"
		}
		keys := make([]string, 0, len(r.Facts))
		for k := range r.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+r.Facts[k])
		}
		return "facts: " + strings.Join(parts, ", ")
	default:
		return r.Text
	}
}

// TopProduct returns the highest scoring product hit, if any.
func (r *Result) TopProduct() (search.ProductHit, bool) {
	if len(r.Products) == 0 {
		return search.ProductHit{}, false
	}
	best := r.Products[0]
	for _, p := range r.Products[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}
