// Package evidence resolves conflicting product identifications collected
// during an agent run. Every signal becomes an Item; the Resolver applies a
// table-driven rule cascade in strict priority order and returns one
// Resolution with a final confidence and a proceed / warn / ask-for-info
// recommendation. Resolve is pure: equal inputs give equal outputs
// regardless of item order.
package evidence

import (
	"encoding/json"
	"strings"
)

// Source identifies where an evidence item came from. Priority (highest
// first): agent, ocr, ticket_facts, agent_document_analysis, vision, catalog.
type Source string

const (
	SourceAgent            Source = "agent"
	SourceOCR              Source = "ocr"
	SourceTicketFacts      Source = "ticket_facts"
	SourceDocumentAnalysis Source = "agent_document_analysis"
	SourceVision           Source = "vision"
	SourceCatalog          Source = "catalog"
)

// sourcePriority orders items for deterministic resolution. Lower is higher
// priority.
var sourcePriority = map[Source]int{
	SourceAgent:            0,
	SourceOCR:              1,
	SourceTicketFacts:      2,
	SourceDocumentAnalysis: 3,
	SourceVision:           4,
	SourceCatalog:          5,
}

// Item is one product identification signal.
type Item struct {
	Source          Source          `json:"source"`
	ProductModel    string          `json:"product_model"`
	ProductName     string          `json:"product_name,omitempty"`
	ProductCategory string          `json:"product_category,omitempty"`
	Confidence      float64         `json:"confidence"`
	RawData         json.RawMessage `json:"raw_data,omitempty"`
	IsExactMatch    bool            `json:"is_exact_match,omitempty"`
}

// Recommendation is what the pipeline should do with the resolved product.
type Recommendation string

const (
	Proceed            Recommendation = "proceed"
	ProceedWithWarning Recommendation = "proceed_with_warning"
	RequestInfo        Recommendation = "request_info"
)

// Conflict records a disagreement between the vision and search channels.
type Conflict struct {
	Kind           string `json:"kind"` // model_mismatch | category_mismatch
	VisionModel    string `json:"vision_model"`
	SearchModel    string `json:"search_model"`
	VisionCategory string `json:"vision_category,omitempty"`
	SearchCategory string `json:"search_category,omitempty"`
}

// Resolution is the resolver's verdict.
type Resolution struct {
	Recommendation  Recommendation `json:"recommendation"`
	ProductModel    string         `json:"product_model,omitempty"`
	ProductName     string         `json:"product_name,omitempty"`
	FinalConfidence float64        `json:"final_confidence"`
	HasConflict     bool           `json:"has_conflict"`
	Conflict        *Conflict      `json:"conflict,omitempty"`
	Rule            string         `json:"rule"`
}

// NormalizeModel canonicalizes a model number for comparison: uppercase with
// underscores and hyphens mapped to dots.
func NormalizeModel(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", ".")
	s = strings.ReplaceAll(s, "-", ".")
	return s
}

// numericFamily returns the first digit run of a normalized model, used to
// detect that two identifiers refer to the same product family.
func numericFamily(model string) string {
	start := -1
	for i, r := range model {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return model[start:i]
		}
	}
	if start != -1 {
		return model[start:]
	}
	return ""
}

// sameFamily reports whether two models share a numeric family.
func sameFamily(a, b string) bool {
	fa, fb := numericFamily(NormalizeModel(a)), numericFamily(NormalizeModel(b))
	return fa != "" && fa == fb
}

// sameModel reports whether two models are equal after normalization.
func sameModel(a, b string) bool {
	na, nb := NormalizeModel(a), NormalizeModel(b)
	return na != "" && na == nb
}
