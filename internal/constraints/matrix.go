package constraints

import "github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"

// Field keys for the requirements matrix. Each maps to one deterministic
// check over the ticket text and attachments (see facts.go).
const (
	FieldReceipt = "receipt"
	FieldAddress = "address"
	FieldPhotos  = "photos"
	FieldPO      = "po"
	FieldModel   = "model"
)

var fieldNames = map[string]string{
	FieldReceipt: "proof of purchase (receipt, invoice, or order confirmation)",
	FieldAddress: "shipping address for replacement delivery",
	FieldPhotos:  "photo(s) showing the issue or defect",
	FieldPO:      "PO number or order number",
	FieldModel:   "product model number",
}

var askTemplates = map[string]string{
	FieldReceipt: "Could you please provide your proof of purchase (receipt, invoice, or order confirmation)? This helps us verify your warranty coverage.",
	FieldAddress: "What address should we send the replacement to?",
	FieldPhotos:  "Could you please send a photo showing the issue with your product? This helps us assess the problem accurately.",
	FieldPO:      "Could you please provide your PO number or order confirmation number?",
	FieldModel:   "Could you please provide the product model number? You can usually find this on the product label or in your order confirmation.",
}

// requirements describes one strictly validated category.
type requirements struct {
	Required []string
	// Blocking fields stop processing entirely when missing; other missing
	// fields only shape the clarification request.
	Blocking []string
	Policies []string
}

// matrix lists the categories with enforceable field requirements. Categories
// absent from the matrix are processed flexibly: over-enforcement on fuzzy
// categories like return_refund causes false positives (a "return" ticket is
// often just a status inquiry).
var matrix = map[ticket.Category]requirements{
	ticket.CategoryWarrantyClaim: {
		Required: []string{FieldReceipt, FieldAddress},
		Blocking: []string{FieldReceipt},
		Policies: []string{"warranty_standard"},
	},
	ticket.CategoryMissingParts: {
		Required: []string{FieldPO, FieldAddress},
		Blocking: []string{FieldPO},
		Policies: []string{"missing_parts_window"},
	},
	ticket.CategoryShippingTracking: {
		Required: []string{FieldPO},
		Blocking: []string{FieldPO},
	},
	ticket.CategoryReplacementParts: {
		Required: []string{FieldModel, FieldAddress},
		Policies: []string{"warranty_standard"},
	},
}
