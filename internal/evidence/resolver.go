package evidence

import (
	"sort"
)

// Thresholds are the tunable confidence floors consulted by the rule table.
type Thresholds struct {
	VisionHigh  float64
	VisionMedium float64
	OCR         float64
	TicketFacts float64
	AgentTrust  float64
}

// DefaultThresholds returns the stock threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{VisionHigh: 0.90, VisionMedium: 0.75, OCR: 0.80, TicketFacts: 0.75, AgentTrust: 0.70}
}

// rule is one row in the resolution table. apply returns nil when the rule
// does not fire; the first firing rule wins.
type rule struct {
	name  string
	apply func(rc *resolveContext) *Resolution
}

// Resolver applies the rule cascade over collected evidence.
type Resolver struct {
	t     Thresholds
	rules []rule
}

// NewResolver builds a resolver with the given thresholds.
func NewResolver(t Thresholds) *Resolver {
	r := &Resolver{t: t}
	r.rules = []rule{
		{name: "agent_trusted", apply: r.agentTrusted},
		{name: "ocr_high", apply: r.ocrHigh},
		{name: "ticket_facts", apply: r.ticketFacts},
		{name: "document_analysis", apply: r.documentAnalysis},
		{name: "vision", apply: r.vision},
		{name: "catalog_exact", apply: r.catalogExact},
		{name: "no_evidence", apply: r.noEvidence},
	}
	return r
}

type resolveContext struct {
	items        []Item
	bestBySource map[Source]*Item
	hasDocs      bool
	exactCatalog *Item
	conflict     *Conflict
}

// Resolve runs the cascade. Items are sorted into a canonical order first so
// the result does not depend on collection order.
func (r *Resolver) Resolve(items []Item) Resolution {
	rc := newResolveContext(items)
	for _, rl := range r.rules {
		if res := rl.apply(rc); res != nil {
			res.Rule = rl.name
			if res.Conflict == nil && rc.conflict != nil {
				res.Conflict = rc.conflict
				res.HasConflict = true
			}
			return *res
		}
	}
	// The no_evidence rule always fires; this is unreachable.
	return Resolution{Recommendation: RequestInfo, Rule: "no_evidence"}
}

func newResolveContext(items []Item) *resolveContext {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sourcePriority[sorted[i].Source], sourcePriority[sorted[j].Source]
		if pi != pj {
			return pi < pj
		}
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return NormalizeModel(sorted[i].ProductModel) < NormalizeModel(sorted[j].ProductModel)
	})

	rc := &resolveContext{items: sorted, bestBySource: map[Source]*Item{}}
	for i := range sorted {
		it := &sorted[i]
		if _, seen := rc.bestBySource[it.Source]; !seen {
			rc.bestBySource[it.Source] = it
		}
		if it.Source == SourceDocumentAnalysis {
			rc.hasDocs = true
		}
		// Exact hits arrive from agent product search as well as from
		// direct catalog lookups; either counts as the exact signal.
		if it.IsExactMatch && (it.Source == SourceAgent || it.Source == SourceCatalog) && rc.exactCatalog == nil {
			rc.exactCatalog = it
		}
	}
	rc.conflict = detectConflict(rc.bestBySource[SourceVision], rc.bestBySource[SourceAgent])
	return rc
}

// detectConflict compares the top vision candidate against the top search
// candidate. A normalized model mismatch wins over a category mismatch.
func detectConflict(vision, agent *Item) *Conflict {
	if vision == nil || agent == nil {
		return nil
	}
	if !sameModel(vision.ProductModel, agent.ProductModel) {
		return &Conflict{
			Kind:        "model_mismatch",
			VisionModel: vision.ProductModel,
			SearchModel: agent.ProductModel,
		}
	}
	if vision.ProductCategory != "" && agent.ProductCategory != "" &&
		vision.ProductCategory != agent.ProductCategory {
		return &Conflict{
			Kind:           "category_mismatch",
			VisionModel:    vision.ProductModel,
			SearchModel:    agent.ProductModel,
			VisionCategory: vision.ProductCategory,
			SearchCategory: agent.ProductCategory,
		}
	}
	return nil
}

// corroborated reports whether an agent item is backed by an independent
// signal: a direct document match, a shared numeric family with another
// source, an exact catalog hit, or high confidence alongside document
// analysis.
func (rc *resolveContext) corroborated(a *Item, trustHigh float64) bool {
	for i := range rc.items {
		it := &rc.items[i]
		if it.Source == a.Source {
			continue
		}
		if it.Source == SourceDocumentAnalysis && sameModel(it.ProductModel, a.ProductModel) {
			return true
		}
		if sameFamily(it.ProductModel, a.ProductModel) {
			return true
		}
	}
	// An item cannot corroborate itself with its own exact flag.
	if rc.exactCatalog != nil && rc.exactCatalog != a && sameModel(rc.exactCatalog.ProductModel, a.ProductModel) {
		return true
	}
	return a.Confidence >= trustHigh && rc.hasDocs
}

func (r *Resolver) agentTrusted(rc *resolveContext) *Resolution {
	a := rc.bestBySource[SourceAgent]
	if a == nil || a.Confidence < r.t.AgentTrust || !rc.corroborated(a, 0.85) {
		return nil
	}
	return &Resolution{
		Recommendation:  Proceed,
		ProductModel:    a.ProductModel,
		ProductName:     a.ProductName,
		FinalConfidence: a.Confidence,
	}
}

func (r *Resolver) ocrHigh(rc *resolveContext) *Resolution {
	o := rc.bestBySource[SourceOCR]
	if o == nil || o.Confidence < r.t.OCR {
		return nil
	}
	return &Resolution{
		Recommendation:  Proceed,
		ProductModel:    o.ProductModel,
		ProductName:     o.ProductName,
		FinalConfidence: 0.95,
	}
}

func (r *Resolver) ticketFacts(rc *resolveContext) *Resolution {
	f := rc.bestBySource[SourceTicketFacts]
	if f == nil || f.Confidence < r.t.TicketFacts {
		return nil
	}
	return &Resolution{
		Recommendation:  Proceed,
		ProductModel:    f.ProductModel,
		ProductName:     f.ProductName,
		FinalConfidence: 0.85,
	}
}

func (r *Resolver) documentAnalysis(rc *resolveContext) *Resolution {
	d := rc.bestBySource[SourceDocumentAnalysis]
	if d == nil || d.Confidence < r.t.AgentTrust {
		return nil
	}
	return &Resolution{
		Recommendation:  Proceed,
		ProductModel:    d.ProductModel,
		ProductName:     d.ProductName,
		FinalConfidence: 0.85,
	}
}

func (r *Resolver) vision(rc *resolveContext) *Resolution {
	v := rc.bestBySource[SourceVision]
	if v == nil {
		return nil
	}
	corroborated := rc.corroborated(v, r.t.VisionHigh)
	base := Resolution{ProductModel: v.ProductModel, ProductName: v.ProductName}
	switch {
	case v.Confidence >= r.t.VisionHigh && corroborated:
		base.Recommendation = Proceed
		base.FinalConfidence = 0.90
	case v.Confidence >= r.t.VisionHigh:
		// High confidence vision with nothing backing it up: proceed but
		// flag for review.
		base.Recommendation = ProceedWithWarning
		base.FinalConfidence = 0.70
		base.HasConflict = true
	case v.Confidence >= r.t.VisionMedium && corroborated:
		base.Recommendation = Proceed
		base.FinalConfidence = 0.75
	case v.Confidence >= r.t.VisionMedium:
		base.Recommendation = RequestInfo
		base.FinalConfidence = 0.40
	case rc.exactCatalog != nil:
		// Vision is unsure but product search landed an exact hit; the
		// exact hit's product wins.
		base.ProductModel = rc.exactCatalog.ProductModel
		base.ProductName = rc.exactCatalog.ProductName
		base.Recommendation = ProceedWithWarning
		base.FinalConfidence = 0.60
	default:
		base.Recommendation = RequestInfo
		base.FinalConfidence = 0.25
	}
	return &base
}

func (r *Resolver) catalogExact(rc *resolveContext) *Resolution {
	if rc.exactCatalog == nil {
		return nil
	}
	return &Resolution{
		Recommendation:  Proceed,
		ProductModel:    rc.exactCatalog.ProductModel,
		ProductName:     rc.exactCatalog.ProductName,
		FinalConfidence: 0.85,
	}
}

func (r *Resolver) noEvidence(rc *resolveContext) *Resolution {
	conf := 0.0
	if len(rc.items) > 0 {
		conf = 0.20
	}
	return &Resolution{
		Recommendation:  RequestInfo,
		FinalConfidence: conf,
	}
}
