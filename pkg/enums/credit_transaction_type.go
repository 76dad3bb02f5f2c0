package enums

import "fmt"

// CreditTransactionType maps to the credit_transaction_type_enum enum in Postgres.
type CreditTransactionType string

const (
	CreditTransactionTypePurchase   CreditTransactionType = "purchase"
	CreditTransactionTypeFree       CreditTransactionType = "free"
	CreditTransactionTypeAdminGrant CreditTransactionType = "admin_grant"
	CreditTransactionTypeUsage      CreditTransactionType = "usage"
	CreditTransactionTypeRefund     CreditTransactionType = "refund"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTransactionTypePurchase,
	CreditTransactionTypeFree,
	CreditTransactionTypeAdminGrant,
	CreditTransactionTypeUsage,
	CreditTransactionTypeRefund,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether transactions of this type add to the balance.
func (t CreditTransactionType) IsCredit() bool {
	switch t {
	case CreditTransactionTypePurchase, CreditTransactionTypeFree, CreditTransactionTypeAdminGrant, CreditTransactionTypeRefund:
		return true
	default:
		return false
	}
}

// ParseCreditTransactionType converts raw input into CreditTransactionType.
func ParseCreditTransactionType(value string) (CreditTransactionType, error) {
	for _, candidate := range validCreditTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit transaction type %q", value)
}
