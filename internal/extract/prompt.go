package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

const (
	baseTokens     = 1024
	tokensPerField = 160
	maxTokenBudget = 16000
)

// TokenBudget scales the completion budget with the number of fields asked for.
func TokenBudget(fields int) int {
	n := baseTokens + tokensPerField*fields
	if n > maxTokenBudget {
		return maxTokenBudget
	}
	return n
}

func systemPrompt(t constants.DocumentType) string {
	return fmt.Sprintf("You are an expert at extracting structured data from %s documents. "+
		"Extract all relevant fields with high accuracy. "+
		"Always respond with valid JSON including confidence scores for each field.", t.Description())
}

const closingHints = `
CRITICAL FIELDS FOR CLOSING DOCUMENTS:
1. escrow_property_tax: monthly escrow amount for property taxes ("Taxes", "Property Tax Escrow", "Tax Reserve").
2. monthly_payment_principal_interest: principal and interest only ("P&I"), separate from escrow amounts.
3. escrow_home_owner_insurance: monthly homeowner insurance escrow ("Hazard Insurance", "HOI"), not the annual premium.
4. escrow_flood_insurance: monthly flood insurance escrow; may be 0 outside a flood zone.
5. total_monthly_payment_piti: the complete monthly payment, P&I plus tax plus insurance escrows.
These amounts are MONTHLY figures. If only an annual amount is shown, divide it by 12.
`

// fieldList renders the schema as an ordered JSON object of name to type.
func fieldList(s *schema.Schema) string {
	var b strings.Builder
	b.WriteString("{\n")
	fields := s.Fields()
	for i, f := range fields {
		fmt.Fprintf(&b, "  %q: %q", f.Name, string(f.Type))
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

func buildUserPrompt(text string, s *schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract structured data from this %s document.\n\n", s.DocumentType())
	b.WriteString("DOCUMENT TEXT:\n")
	b.WriteString(text)
	b.WriteString("\n\nFIELDS TO EXTRACT (name: type):\n")
	b.WriteString(fieldList(s))
	b.WriteString("\n")
	if s.DocumentType() == constants.ClosingStatement {
		b.WriteString(closingHints)
	}
	b.WriteString(`
Instructions:
1. Extract ALL fields listed above.
2. For each field provide value (null if not found), confidence (0.0 to 1.0) and source_text (the exact snippet the value came from).
3. Numbers are plain JSON numbers without currency symbols. Dates use YYYY-MM-DD.
4. Keep up to 3 decimal places for interest_rate (e.g. 6.237).
5. Include an overall_confidence score.

Respond with JSON in this format:
{"fields": {"field_name": {"value": "extracted_value", "confidence": 0.95, "source_text": "snippet"}}, "overall_confidence": 0.9}`)
	return b.String()
}
