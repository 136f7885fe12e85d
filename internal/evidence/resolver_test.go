package evidence

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEmpty(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve(nil)
	assert.Equal(t, RequestInfo, res.Recommendation)
	assert.Equal(t, 0.0, res.FinalConfidence)
	assert.Equal(t, "no_evidence", res.Rule)
}

func TestResolveWeakSignalsOnly(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-100", Confidence: 0.30},
	})
	assert.Equal(t, RequestInfo, res.Recommendation)
	assert.Equal(t, 0.20, res.FinalConfidence)
	assert.Equal(t, "no_evidence", res.Rule)
}

func TestResolveAgentTrustedWithDocumentMatch(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-100", ProductName: "Flex Faucet", Confidence: 0.78},
		{Source: SourceDocumentAnalysis, ProductModel: "flx_100", Confidence: 0.60},
	})
	assert.Equal(t, Proceed, res.Recommendation)
	assert.Equal(t, "agent_trusted", res.Rule)
	assert.Equal(t, "FLX-100", res.ProductModel)
	assert.Equal(t, 0.78, res.FinalConfidence)
	assert.False(t, res.HasConflict)
}

func TestResolveAgentTrustedWithSharedFamily(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-200", Confidence: 0.72},
		{Source: SourceVision, ProductModel: "FLX-200B", Confidence: 0.50},
	})
	assert.Equal(t, "agent_trusted", res.Rule)
	assert.Equal(t, Proceed, res.Recommendation)
}

func TestResolveAgentBelowTrustFallsThrough(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-100", Confidence: 0.55},
		{Source: SourceDocumentAnalysis, ProductModel: "FLX-100", Confidence: 0.72},
	})
	// The document analysis signal carries it instead.
	assert.Equal(t, "document_analysis", res.Rule)
	assert.Equal(t, 0.85, res.FinalConfidence)
}

func TestResolveOCROutranksVision(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceOCR, ProductModel: "K-7500", Confidence: 0.86},
		{Source: SourceVision, ProductModel: "K-9900", Confidence: 0.95},
	})
	assert.Equal(t, "ocr_high", res.Rule)
	assert.Equal(t, Proceed, res.Recommendation)
	assert.Equal(t, "K-7500", res.ProductModel)
	assert.Equal(t, 0.95, res.FinalConfidence)
}

func TestResolveTicketFacts(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceTicketFacts, ProductModel: "AB-2204", Confidence: 0.80},
	})
	assert.Equal(t, "ticket_facts", res.Rule)
	assert.Equal(t, 0.85, res.FinalConfidence)
}

func TestResolveVisionHighCorroborated(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "FLX-300", Confidence: 0.93},
		{Source: SourceCatalog, ProductModel: "FLX-300", Confidence: 0.50, IsExactMatch: true},
	})
	assert.Equal(t, "vision", res.Rule)
	assert.Equal(t, Proceed, res.Recommendation)
	assert.Equal(t, 0.90, res.FinalConfidence)
	assert.False(t, res.HasConflict)
}

func TestResolveVisionHighAloneWarns(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "FLX-300", Confidence: 0.92},
	})
	assert.Equal(t, "vision", res.Rule)
	assert.Equal(t, ProceedWithWarning, res.Recommendation)
	assert.Equal(t, 0.70, res.FinalConfidence)
	assert.True(t, res.HasConflict)
}

func TestResolveVisionMediumAloneAsks(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "FLX-300", Confidence: 0.80},
	})
	assert.Equal(t, RequestInfo, res.Recommendation)
	assert.Equal(t, 0.40, res.FinalConfidence)
}

func TestResolveVisionLowExactMatchWarns(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "FLX-300", Confidence: 0.50},
		{Source: SourceAgent, ProductModel: "FLX-100", ProductName: "Flex Faucet", Confidence: 0.95, IsExactMatch: true},
	})
	assert.Equal(t, "vision", res.Rule)
	assert.Equal(t, ProceedWithWarning, res.Recommendation)
	assert.Equal(t, 0.60, res.FinalConfidence)
	// The exact hit's product wins over the uncertain vision candidate.
	assert.Equal(t, "FLX-100", res.ProductModel)
}

func TestResolveExactProductHitAlone(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-100", ProductName: "Flex Faucet", Confidence: 0.95, IsExactMatch: true},
	})
	assert.Equal(t, "catalog_exact", res.Rule)
	assert.Equal(t, Proceed, res.Recommendation)
	assert.Equal(t, 0.85, res.FinalConfidence)
	assert.Equal(t, "FLX-100", res.ProductModel)
	assert.False(t, res.HasConflict)
}

func TestResolveExactHitDoesNotCorroborateItself(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceAgent, ProductModel: "FLX-100", Confidence: 0.80, IsExactMatch: true},
	})
	// A lone exact hit must not count as its own independent backing.
	assert.NotEqual(t, "agent_trusted", res.Rule)
	assert.Equal(t, "catalog_exact", res.Rule)
}

func TestResolveCatalogExactAlone(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceCatalog, ProductModel: "FLX-400", Confidence: 0.90, IsExactMatch: true},
	})
	assert.Equal(t, "catalog_exact", res.Rule)
	assert.Equal(t, Proceed, res.Recommendation)
	assert.Equal(t, 0.85, res.FinalConfidence)
}

func TestResolveModelConflictRecorded(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "FLX-900", ProductCategory: "faucets", Confidence: 0.80},
		{Source: SourceAgent, ProductModel: "AB-100", ProductCategory: "valves", Confidence: 0.40},
	})
	require.NotNil(t, res.Conflict)
	assert.True(t, res.HasConflict)
	assert.Equal(t, "model_mismatch", res.Conflict.Kind)
	assert.Equal(t, "FLX-900", res.Conflict.VisionModel)
	assert.Equal(t, "AB-100", res.Conflict.SearchModel)
}

func TestResolveCategoryConflictRecorded(t *testing.T) {
	r := NewResolver(DefaultThresholds())
	res := r.Resolve([]Item{
		{Source: SourceVision, ProductModel: "flx-100", ProductCategory: "faucets", Confidence: 0.80},
		{Source: SourceAgent, ProductModel: "FLX_100", ProductCategory: "valves", Confidence: 0.40},
	})
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "category_mismatch", res.Conflict.Kind)
}

func TestResolveOrderIndependent(t *testing.T) {
	items := []Item{
		{Source: SourceVision, ProductModel: "FLX-300", Confidence: 0.93},
		{Source: SourceAgent, ProductModel: "FLX-100", Confidence: 0.55},
		{Source: SourceCatalog, ProductModel: "FLX-300", Confidence: 0.50, IsExactMatch: true},
		{Source: SourceOCR, ProductModel: "FLX-300", Confidence: 0.40},
		{Source: SourceTicketFacts, ProductModel: "FLX-100", Confidence: 0.30},
	}
	r := NewResolver(DefaultThresholds())
	want := r.Resolve(items)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]Item, len(items))
		copy(shuffled, items)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, r.Resolve(shuffled))
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "FLX.100", NormalizeModel(" flx_100 "))
	assert.Equal(t, "FLX.100", NormalizeModel("FLX-100"))
	assert.True(t, sameModel("flx-100", "FLX_100"))
	assert.True(t, sameFamily("FLX-200B", "flx_200"))
	assert.False(t, sameFamily("FLX-200", "FLX-300"))
}
