package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupOf(t *testing.T) {
	tests := []struct {
		category Category
		group    Group
	}{
		{CategoryPurchaseOrder, GroupSkip},
		{CategoryAutoReply, GroupSkip},
		{CategorySpam, GroupSkip},
		{CategoryWarrantyClaim, GroupFullWorkflow},
		{CategoryProductInquiry, GroupFlexibleRAG},
		{CategoryPricingRequest, GroupInformationRequest},
		{CategoryGeneral, GroupSpecial},
		{Category("made_up"), GroupSpecial},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.group, GroupOf(tt.category))
		})
	}
}

func TestAllCategoriesCovered(t *testing.T) {
	cats := AllCategories()
	assert.Len(t, cats, 16)
	for _, c := range cats {
		assert.True(t, Known(c), "category %s must map to a group", c)
	}
	assert.False(t, Known(Category("nope")))
}

func TestUsesVision(t *testing.T) {
	assert.True(t, UsesVision(CategoryProductIssue, false))
	assert.True(t, UsesVision(CategoryProductInquiry, true))
	assert.False(t, UsesVision(CategoryProductInquiry, false))
	assert.False(t, UsesVision(CategoryPricingRequest, true))
}

func TestClaimProductFirstWriterWins(t *testing.T) {
	s := &State{}
	assert.True(t, s.ClaimProduct(IdentifiedProduct{Model: "FLX.100", Confidence: 0.8, Source: "product_search"}))
	assert.False(t, s.ClaimProduct(IdentifiedProduct{Model: "FLX.200", Confidence: 0.99, Source: "vision"}))
	assert.Equal(t, "FLX.100", s.Product.Model)
}

func TestImageURLs(t *testing.T) {
	tk := &Ticket{Attachments: []Attachment{
		{Name: "broken.jpg", ContentType: "image/jpeg", URL: "https://cdn/a.jpg"},
		{Name: "order.pdf", ContentType: "application/pdf", URL: "https://cdn/o.pdf"},
		{Name: "photo.png", ContentType: "image/png", URL: "https://cdn/b.png"},
	}}
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.png"}, tk.ImageURLs())
}
