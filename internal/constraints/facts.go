package constraints

import (
	"regexp"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/attachment"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var (
	orderNumberRe = regexp.MustCompile(`(?i)\b(?:order|po)\s*(?:number|no\.?|#)?\s*:?\s*\d{5,12}\b`)
	// Street-address shapes like "123 Main St" or "45 Oak Avenue, Apt 2".
	streetAddressRe = regexp.MustCompile(`(?i)\b\d{1,5}\s+[A-Za-z][A-Za-z .]{2,30}\s(?:st|street|ave|avenue|rd|road|blvd|boulevard|ln|lane|dr|drive|way|ct|court)\b`)
)

var receiptPhrases = []string{"receipt", "proof of purchase", "invoice", "order confirmation"}

// extractFacts derives field presence from the ticket deterministically. It
// intentionally over-detects rather than under-detects: asking a customer for
// something they already sent is the worse failure mode.
func extractFacts(tk *ticket.Ticket) map[string]bool {
	text := tk.Subject + "\n" + tk.Text
	lower := strings.ToLower(text)

	hasReceiptPhrase := false
	for _, p := range receiptPhrases {
		if strings.Contains(lower, p) {
			hasReceiptPhrase = true
			break
		}
	}

	return map[string]bool{
		FieldReceipt: hasReceiptPhrase || attachment.HasPDF(tk),
		FieldAddress: streetAddressRe.MatchString(text) ||
			strings.Contains(lower, "my address") || strings.Contains(lower, "ship to"),
		FieldPhotos: attachment.HasImages(tk),
		FieldPO:     orderNumberRe.MatchString(text),
		FieldModel:  len(tools.ModelCandidates(text, 1)) > 0,
	}
}
