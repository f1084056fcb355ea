package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "ACTIVE"
	LoanStatusPaidOff LoanStatus = "PAID_OFF"
)

type PaymentType string

const (
	PaymentTypeEMI     PaymentType = "EMI"
	PaymentTypeLumpSum PaymentType = "LUMP_SUM"
)

// Valid reports whether t is one of the accepted payment types.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeEMI || t == PaymentTypeLumpSum
}

type Customer struct {
	ID        string    `json:"customer_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}

// Loan is a simple-interest loan. Principal, InterestRate and PeriodYears never
// change after creation; Balance and Status are the only mutable fields.
type Loan struct {
	ID           uuid.UUID       `json:"loan_id"`
	CustomerID   string          `json:"customer_id"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"` // percent per year
	PeriodYears  int             `json:"period_years"`
	TotalPayable decimal.Decimal `json:"total_payable"` // as computed at creation
	MonthlyEMI   decimal.Decimal `json:"monthly_emi"`
	Balance      decimal.Decimal `json:"balance"`
	Status       LoanStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Payment struct {
	ID        uuid.UUID       `json:"payment_id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      PaymentType     `json:"payment_type"`
	CreatedAt time.Time       `json:"created_at"`
}
