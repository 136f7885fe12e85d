package ticket

// Category is the classification assigned to a ticket. The set is closed;
// anything unrecognized maps to CategoryGeneral.
type Category string

const (
	CategoryPurchaseOrder    Category = "purchase_order"
	CategoryAutoReply        Category = "auto_reply"
	CategorySpam             Category = "spam"
	CategoryProductIssue     Category = "product_issue"
	CategoryReplacementParts Category = "replacement_parts"
	CategoryWarrantyClaim    Category = "warranty_claim"
	CategoryMissingParts     Category = "missing_parts"
	CategoryProductInquiry   Category = "product_inquiry"
	CategoryInstallationHelp Category = "installation_help"
	CategoryFinishColor      Category = "finish_color"
	CategoryPricingRequest   Category = "pricing_request"
	CategoryDealerInquiry    Category = "dealer_inquiry"
	CategoryShippingTracking Category = "shipping_tracking"
	CategoryReturnRefund     Category = "return_refund"
	CategoryFeedback         Category = "feedback_suggestion"
	CategoryGeneral          Category = "general"
)

// Group determines how a category is processed downstream.
type Group string

const (
	// GroupSkip short-circuits the pipeline: tag + note, no agent run.
	GroupSkip Group = "skip"
	// GroupFullWorkflow runs the agent with vision and text tools.
	GroupFullWorkflow Group = "full_workflow"
	// GroupFlexibleRAG runs text tools, adding vision only when the
	// ticket carries images.
	GroupFlexibleRAG Group = "flexible_rag"
	// GroupInformationRequest runs text tools only.
	GroupInformationRequest Group = "information_request"
	// GroupSpecial runs text tools only with category-specific prompts.
	GroupSpecial Group = "special"
)

var categoryGroups = map[Category]Group{
	CategoryPurchaseOrder:    GroupSkip,
	CategoryAutoReply:        GroupSkip,
	CategorySpam:             GroupSkip,
	CategoryProductIssue:     GroupFullWorkflow,
	CategoryReplacementParts: GroupFullWorkflow,
	CategoryWarrantyClaim:    GroupFullWorkflow,
	CategoryMissingParts:     GroupFullWorkflow,
	CategoryProductInquiry:   GroupFlexibleRAG,
	CategoryInstallationHelp: GroupFlexibleRAG,
	CategoryFinishColor:      GroupFlexibleRAG,
	CategoryPricingRequest:   GroupInformationRequest,
	CategoryDealerInquiry:    GroupInformationRequest,
	CategoryShippingTracking: GroupSpecial,
	CategoryReturnRefund:     GroupSpecial,
	CategoryFeedback:         GroupSpecial,
	CategoryGeneral:          GroupSpecial,
}

// GroupOf returns the processing group for c, defaulting to GroupSpecial
// for unknown categories.
func GroupOf(c Category) Group {
	if g, ok := categoryGroups[c]; ok {
		return g
	}
	return GroupSpecial
}

// Known reports whether c is one of the closed category set.
func Known(c Category) bool {
	_, ok := categoryGroups[c]
	return ok
}

// AllCategories returns the closed category set in stable order.
func AllCategories() []Category {
	return []Category{
		CategoryPurchaseOrder, CategoryAutoReply, CategorySpam,
		CategoryProductIssue, CategoryReplacementParts, CategoryWarrantyClaim,
		CategoryMissingParts, CategoryProductInquiry, CategoryInstallationHelp,
		CategoryFinishColor, CategoryPricingRequest, CategoryDealerInquiry,
		CategoryShippingTracking, CategoryReturnRefund, CategoryFeedback,
		CategoryGeneral,
	}
}

// UsesVision reports whether the agent should run vision tools for this
// ticket: always for full workflow, only with images for flexible RAG.
func UsesVision(c Category, hasImages bool) bool {
	switch GroupOf(c) {
	case GroupFullWorkflow:
		return true
	case GroupFlexibleRAG:
		return hasImages
	default:
		return false
	}
}
