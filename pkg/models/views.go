package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanCreated is returned after a loan has been issued.
type LoanCreated struct {
	LoanID             uuid.UUID       `json:"loan_id"`
	CustomerID         string          `json:"customer_id"`
	TotalAmountPayable decimal.Decimal `json:"total_amount_payable"`
	MonthlyEMI         decimal.Decimal `json:"monthly_emi"`
}

// PaymentResult is returned after a payment has been applied to a loan.
type PaymentResult struct {
	PaymentID        uuid.UUID       `json:"payment_id"`
	LoanID           uuid.UUID       `json:"loan_id"`
	Message          string          `json:"message"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           LoanStatus      `json:"status"`
	EMIsLeft         int             `json:"emis_left"`
}

type LedgerTransaction struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Type          PaymentType     `json:"type"`
}

type LoanLedger struct {
	LoanID        uuid.UUID           `json:"loan_id"`
	CustomerID    string              `json:"customer_id"`
	Principal     decimal.Decimal     `json:"principal"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	TotalInterest decimal.Decimal     `json:"total_interest"`
	MonthlyEMI    decimal.Decimal     `json:"monthly_emi"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	BalanceAmount decimal.Decimal     `json:"balance_amount"`
	EMIsLeft      int                 `json:"emis_left"`
	Status        LoanStatus          `json:"status"`
	Transactions  []LedgerTransaction `json:"transactions"`
}

type LoanOverview struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	Principal     decimal.Decimal `json:"principal"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	EMIAmount     decimal.Decimal `json:"emi_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	EMIsLeft      int             `json:"emis_left"`
	Status        LoanStatus      `json:"status"`
}

type CustomerOverview struct {
	CustomerID string         `json:"customer_id"`
	TotalLoans int            `json:"total_loans"`
	Loans      []LoanOverview `json:"loans"`
}

// LoanSummary is the row shape of the loan listing endpoints.
type LoanSummary struct {
	LoanID          uuid.UUID       `json:"loan_id"`
	CustomerID      string          `json:"customer_id"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	BalanceAmount   decimal.Decimal `json:"balance_amount"`
	MonthlyEMI      decimal.Decimal `json:"monthly_emi"`
	Status          LoanStatus      `json:"status"`
}
