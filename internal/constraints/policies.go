package constraints

import "strings"

// policyRule is one citable business rule. The citation text must appear in
// any customer-facing draft the rule applies to.
type policyRule struct {
	Name     string
	Citation string
}

var policyRules = map[string]policyRule{
	"warranty_standard": {
		Name:     "Standard Warranty",
		Citation: "Our standard warranty covers manufacturing defects for 1 year from the date of purchase.",
	},
	"hose_warranty": {
		Name:     "Hose and Supply Line Warranty",
		Citation: "Hoses and supply lines are covered under our extended warranty for 2 years from the date of purchase.",
	},
	"missing_parts_window": {
		Name:     "Missing Parts Window",
		Citation: "Missing parts must be reported within 45 days of delivery to qualify for free replacement.",
	},
	"return_policy": {
		Name:     "Return Policy",
		Citation: "Returns are accepted within 45 days of purchase for unused products in original packaging. A 15% restocking fee applies to opened items.",
	},
	"dealer_program": {
		Name:     "Dealer Program",
		Citation: "We welcome dealer and distributor partnerships. Our dealer program offers competitive pricing and dedicated support.",
	},
}

// productPolicyTriggers upgrades the applicable policy set when the ticket
// mentions a product family with special coverage.
var productPolicyTriggers = map[string]string{
	"hose":         "hose_warranty",
	"supply line":  "hose_warranty",
	"supply_line":  "hose_warranty",
	"braided":      "hose_warranty",
	"connector":    "hose_warranty",
	"water supply": "hose_warranty",
}

// applicablePolicies merges the category's policy keys with product-triggered
// ones, preserving order and dropping duplicates.
func applicablePolicies(categoryPolicies []string, text string) []string {
	out := make([]string, 0, len(categoryPolicies)+1)
	seen := make(map[string]bool)
	for _, p := range categoryPolicies {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	lower := strings.ToLower(text)
	for keyword, policy := range productPolicyTriggers {
		if strings.Contains(lower, keyword) && !seen[policy] {
			seen[policy] = true
			out = append(out, policy)
		}
	}
	return out
}

// citations resolves policy keys to their citation strings.
func citations(policies []string) []string {
	var out []string
	for _, p := range policies {
		if rule, ok := policyRules[p]; ok && rule.Citation != "" {
			out = append(out, rule.Citation)
		}
	}
	return out
}
