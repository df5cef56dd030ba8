package constants

import "strings"

// DocumentType is the closed set of document kinds the classifier may emit.
type DocumentType string

const (
	ClosingStatement   DocumentType = "closing_statement"
	FirstPaymentLetter DocumentType = "first_payment_letter"
	EscrowDisclosure   DocumentType = "escrow_disclosure"
	HomeOwnerInsurance DocumentType = "home_owner_insurance"
	ExhibitA           DocumentType = "exhibit_a"
	TaxBill            DocumentType = "tax_bill"
	LeaseAgreement     DocumentType = "lease_agreement"
	MortgageStatement  DocumentType = "mortgage_statement"
	Unknown            DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	ClosingStatement,
	FirstPaymentLetter,
	EscrowDisclosure,
	HomeOwnerInsurance,
	ExhibitA,
	TaxBill,
	LeaseAgreement,
	MortgageStatement,
	Unknown,
}

var documentDescriptions = map[DocumentType]string{
	ClosingStatement:   "Closing/ALTA Settlement Statement",
	FirstPaymentLetter: "First Payment Information Letter",
	EscrowDisclosure:   "Initial Escrow Account Disclosure",
	HomeOwnerInsurance: "Home Owner Insurance Policy",
	ExhibitA:           "Exhibit A - Legal Property Description",
	TaxBill:            "Property Tax Bill",
	LeaseAgreement:     "Residential Lease Agreement",
	MortgageStatement:  "Mortgage/Loan Statement",
	Unknown:            "Unknown Document Type",
}

// The classifier has historically answered with these labels too.
var documentTypeAliases = map[string]DocumentType{
	"closing_alta":   ClosingStatement,
	"alta":           ClosingStatement,
	"hoi":            HomeOwnerInsurance,
	"lease":          LeaseAgreement,
	"property_tax":   TaxBill,
	"loan_statement": MortgageStatement,
}

// AllDocumentTypes returns the closed set in a stable order, unknown last.
func AllDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// IsValid reports membership in the closed set.
func (t DocumentType) IsValid() bool {
	_, ok := documentDescriptions[t]
	return ok
}

// Description is the human label used in prompts and exports.
func (t DocumentType) Description() string {
	if d, ok := documentDescriptions[t]; ok {
		return d
	}
	return documentDescriptions[Unknown]
}

// ParseDocumentType maps a backend label onto the closed set.
// The second return is false when the label is not recognized.
func ParseDocumentType(s string) (DocumentType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	if t := DocumentType(norm); t.IsValid() {
		return t, true
	}
	if t, ok := documentTypeAliases[norm]; ok {
		return t, true
	}
	return Unknown, false
}
