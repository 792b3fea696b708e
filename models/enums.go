package models

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleOwner UserRole = "O"
	UserRoleStaff UserRole = "S"
)

type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "PENDING"
	DocumentStatusPaid    DocumentStatus = "PAID"
	DocumentStatusOverdue DocumentStatus = "OVERDUE"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
)

type BankTransactionType string

const (
	BankTransactionTypeDeposit    BankTransactionType = "deposit"
	BankTransactionTypeWithdrawal BankTransactionType = "withdrawal"
	BankTransactionTypeTransfer   BankTransactionType = "transfer"
)

// ReferenceType links a mirrored bank transaction back to the record that
// generated it.
type ReferenceType string

const (
	ReferenceTypePayment ReferenceType = "payments"
	ReferenceTypeReceipt ReferenceType = "payment_receipts"
	ReferenceTypeManual  ReferenceType = ""
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type Identifier interface {
	GetId() int
}

type HasId struct {
	ID int `json:"id"`
}

func (h HasId) GetId() int {
	return h.ID
}
