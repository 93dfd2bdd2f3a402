package enums

import "fmt"

// TransactionKind labels a point transaction by what caused the delta.
type TransactionKind string

const (
	TransactionKindEarn         TransactionKind = "earn"
	TransactionKindSpend        TransactionKind = "spend"
	TransactionKindRefund       TransactionKind = "refund"
	TransactionKindTeacherGrant TransactionKind = "teacher_grant"
	TransactionKindAdminAdjust  TransactionKind = "admin_adjust"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindEarn,
	TransactionKindSpend,
	TransactionKindRefund,
	TransactionKindTeacherGrant,
	TransactionKindAdminAdjust,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
