package domain

// Sentinel values used when a scanned payload cannot be decoded
const (
	UnknownName   = "Unknown User"
	UnknownDetail = "N/A"
)

// PayloadKind distinguishes trusted from sentinel payload data
type PayloadKind int

const (
	ParsedPayload PayloadKind = iota
	FallbackPayload
)

// ScanPayload is the decoded content of a customer QR code
type ScanPayload struct {
	Kind       PayloadKind
	Raw        string
	Name       string
	Phone      string
	Membership string
}

// Fallback reports whether the payload carries sentinel values
func (p ScanPayload) Fallback() bool {
	return p.Kind == FallbackPayload
}

// MaxAmountSpent is the largest amount a visit column (decimal(12,2)) holds
const MaxAmountSpent = 9_999_999_999.99

// Transaction is one purchase amount to be awarded points
type Transaction struct {
	MembershipNumber string  `json:"membership_number"`
	AmountSpent      float64 `json:"amountSpent"`
}
