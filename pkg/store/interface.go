package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/banklend/pkg/models"
)

var (
	ErrLoanNotFound     = errors.New("loan not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// PaymentFunc decides how a payment changes a loan. It receives the loan as
// currently stored, mutates its Balance and Status in place and returns the
// payment row to append. Returning an error aborts the unit of work.
type PaymentFunc func(loan *models.Loan) (*models.Payment, error)

// Storage defines the interface for database operations related to customers, loans and payments.
type Storage interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	GetAllCustomers(ctx context.Context) ([]*models.Customer, error)

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	GetAllLoans(ctx context.Context) ([]*models.Loan, error)
	GetAllActiveLoans(ctx context.Context) ([]*models.Loan, error)
	GetLoansForCustomer(ctx context.Context, customerID string) ([]*models.Loan, error)

	// RecordPayment reads the loan, runs apply, then appends the returned
	// payment and saves the loan's new balance and status, all in one
	// transaction. Nothing is persisted unless every step succeeds.
	RecordPayment(ctx context.Context, loanID uuid.UUID, apply PaymentFunc) error
	GetPaymentsForLoan(ctx context.Context, loanID uuid.UUID) ([]*models.Payment, error)

	Close() error
}
