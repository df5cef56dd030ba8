package consolidate

import (
	"strconv"
	"strings"
	"unicode"
)

// column is one property column and the record fields that can fill it,
// highest priority first.
type column struct {
	name     string
	synonyms []string
}

var propertyColumns = []column{
	{"address", []string{"property_address", "address"}},
	{"city", []string{"city"}},
	{"state", []string{"state"}},
	{"zip_code", []string{"zip_code", "zip"}},
	{"county", []string{"county"}},
	{"property_type", []string{"property_type"}},
	{"legal_description", []string{"legal_description", "property_address_legal_description"}},
	{"property_sqf", []string{"property_sqf", "square_feet"}},
	{"construction_year", []string{"construction_year", "year_built"}},
	{"purchase_price", []string{"purchase_price"}},
	{"refinance_price", []string{"refinance_price"}},
	{"purchase_refinance_closing_date", []string{"closing_date", "purchase_refinance_closing_date"}},
	{"closing_date", []string{"closing_date"}},
	{"valuation", []string{"purchase_price", "refinance_price", "property_value"}},
	{"assessed_value", []string{"assessed_value"}},
	{"loan_amount", []string{"loan_amount"}},
	{"loan_number", []string{"loan_number"}},
	{"loan_rate", []string{"interest_rate", "loan_rate"}},
	{"loan_term", []string{"term_years", "loan_term"}},
	{"interest_rate", []string{"interest_rate"}},
	{"term_years", []string{"term_years"}},
	{"monthly_payment", []string{"monthly_payment", "monthly_payment_principal_interest"}},
	{"borrower_name", []string{"borrower_name"}},
	{"lender_name", []string{"lender_name", "lender_mortgage_name"}},
	{"rent", []string{"rent", "monthly_rent"}},
	{"taxes", []string{"taxes", "annual_property_tax"}},
	{"insurance", []string{"insurance", "annual_premium"}},
	{"hoa", []string{"hoa", "hoa_fee"}},
}

var mortgageColumns = []column{
	{"lender_name", []string{"lender_name", "lender_mortgage_name"}},
	{"loan_number", []string{"loan_number"}},
	{"loan_amount", []string{"loan_amount"}},
	{"interest_rate", []string{"interest_rate", "loan_rate"}},
	{"monthly_payment", []string{"monthly_payment_principal_interest", "monthly_payment"}},
	{"start_date", []string{"closing_date", "loan_start_date"}},
	{"first_payment_date", []string{"first_payment_date"}},
}

const (
	defaultPropertyType  = "residential"
	defaultLoanTermYears = 30
)

// firstOf returns the first present value among names.
func firstOf(fields map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := fields[n]; ok && !isEmptyValue(v) {
			return v, true
		}
	}
	return nil, false
}

func mapColumns(fields map[string]any, cols []column) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if v, ok := firstOf(fields, c.synonyms...); ok {
			out[c.name] = v
		}
	}
	return out
}

// NormalizeAddress uppercases and strips all whitespace.
func NormalizeAddress(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
