package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/banklend/pkg/loancalc"
	"github.com/mcclellann/banklend/pkg/metrics"
	"github.com/mcclellann/banklend/pkg/models"
	"github.com/mcclellann/banklend/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const paymentRecordedMessage = "Payment recorded successfully."

// Ledger handles the business logic for loans and payments.
type Ledger struct {
	storage store.Storage
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l
		}
	}
}

// WithMetrics records loan and payment counters in m. A nil m records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(lg *Ledger) { lg.metrics = m }
}

// WithClock overrides the source of payment and loan timestamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) { lg.now = now }
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage: s,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateCustomer registers a customer with a generated ID.
func (l *Ledger) CreateCustomer(ctx context.Context, name string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("Invalid name. Customer name must not be empty.")
	}
	c := &models.Customer{ID: uuid.NewString(), Name: name, CreatedAt: l.now()}
	if err := l.storage.CreateCustomer(ctx, c); err != nil {
		return nil, storeError("failed to store customer", err)
	}
	l.logger.Info("customer created", zap.String("customer_id", c.ID))
	return c, nil
}

// ListCustomers returns every customer ordered by name.
func (l *Ledger) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	customers, err := l.storage.GetAllCustomers(ctx)
	if err != nil {
		return nil, storeError("failed to list customers", err)
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	return customers, nil
}

// CreateLoan issues a new simple-interest loan to an existing customer.
func (l *Ledger) CreateLoan(ctx context.Context, customerID string, principal, ratePercent decimal.Decimal, years int) (*models.LoanCreated, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, validationError("Invalid customer_id.")
	}
	if err := loancalc.ValidateTerms(principal, ratePercent, years); err != nil {
		return nil, &Error{Code: CodeValidation, Message: "Invalid input data: " + err.Error() + ".", Err: err}
	}

	if _, err := l.storage.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, notFoundError("Customer with ID '%s' not found.", customerID)
		}
		return nil, storeError("failed to look up customer", err)
	}

	terms := loancalc.ComputeLoanTerms(principal, ratePercent, years)
	loan := &models.Loan{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Principal:    principal,
		InterestRate: ratePercent,
		PeriodYears:  years,
		TotalPayable: terms.TotalPayable,
		MonthlyEMI:   terms.MonthlyInstallment,
		Balance:      terms.TotalPayable,
		Status:       models.LoanStatusActive,
		CreatedAt:    l.now(),
	}

	if err := l.storage.CreateLoan(ctx, loan); err != nil {
		return nil, storeError("failed to store loan", err)
	}

	l.metrics.LoanCreated()
	l.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("customer_id", customerID),
		zap.String("total_payable", terms.TotalPayable.StringFixed(2)),
		zap.String("monthly_emi", terms.MonthlyInstallment.StringFixed(2)))

	return &models.LoanCreated{
		LoanID:             loan.ID,
		CustomerID:         customerID,
		TotalAmountPayable: terms.TotalPayable,
		MonthlyEMI:         terms.MonthlyInstallment,
	}, nil
}

// RecordPayment applies one payment to a loan. The balance check, the new
// payment row and the balance update happen in a single store transaction.
func (l *Ledger) RecordPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paymentType models.PaymentType) (*models.PaymentResult, error) {
	result, err := l.recordPayment(ctx, loanID, amount, paymentType)
	if err != nil {
		l.metrics.PaymentRejected(CodeOf(err))
		return nil, err
	}
	l.metrics.PaymentRecorded(string(paymentType), result.Status == models.LoanStatusPaidOff)
	return result, nil
}

func (l *Ledger) recordPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paymentType models.PaymentType) (*models.PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, validationError("Invalid amount. Payment amount must be a positive number.")
	}
	if !paymentType.Valid() {
		return nil, validationError(`Invalid payment_type. Must be "EMI" or "LUMP_SUM".`)
	}

	var result *models.PaymentResult
	err := l.storage.RecordPayment(ctx, loanID, func(loan *models.Loan) (*models.Payment, error) {
		if loan.Status == models.LoanStatusPaidOff {
			return nil, paidOffError(loan.ID)
		}

		loan.Balance = loancalc.NextBalance(loan.Balance, amount)
		loan.Status = models.LoanStatusActive
		if loan.Balance.IsZero() {
			loan.Status = models.LoanStatusPaidOff
		}

		payment := &models.Payment{
			ID:        uuid.New(),
			LoanID:    loan.ID,
			Amount:    amount,
			Type:      paymentType,
			CreatedAt: l.now(),
		}
		result = &models.PaymentResult{
			PaymentID:        payment.ID,
			LoanID:           loan.ID,
			Message:          paymentRecordedMessage,
			RemainingBalance: loan.Balance,
			Status:           loan.Status,
			EMIsLeft:         loancalc.EMIsLeft(loan.Balance, loan.MonthlyEMI),
		}
		return payment, nil
	})
	if err != nil {
		var le *Error
		switch {
		case errors.As(err, &le):
			return nil, le
		case errors.Is(err, store.ErrLoanNotFound):
			return nil, notFoundError("Loan with ID '%s' not found.", loanID)
		default:
			return nil, storeError("failed to record payment", err)
		}
	}

	l.logger.Info("payment recorded",
		zap.String("loan_id", loanID.String()),
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("amount", amount.String()),
		zap.String("type", string(paymentType)),
		zap.String("remaining_balance", result.RemainingBalance.StringFixed(2)),
		zap.String("status", string(result.Status)))
	return result, nil
}

// GetLedger returns a loan's summary figures and its payments in chronological order.
func (l *Ledger) GetLedger(ctx context.Context, loanID uuid.UUID) (*models.LoanLedger, error) {
	loan, err := l.storage.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, store.ErrLoanNotFound) {
			return nil, notFoundError("Loan with ID '%s' not found.", loanID)
		}
		return nil, storeError("failed to get loan", err)
	}

	payments, err := l.storage.GetPaymentsForLoan(ctx, loanID)
	if err != nil {
		return nil, storeError("failed to get payments", err)
	}

	terms := loancalc.ComputeLoanTerms(loan.Principal, loan.InterestRate, loan.PeriodYears)
	transactions := make([]models.LedgerTransaction, 0, len(payments))
	for _, p := range payments {
		transactions = append(transactions, models.LedgerTransaction{
			TransactionID: p.ID,
			Date:          p.CreatedAt,
			Amount:        loancalc.Round2(p.Amount),
			Type:          p.Type,
		})
	}

	return &models.LoanLedger{
		LoanID:        loan.ID,
		CustomerID:    loan.CustomerID,
		Principal:     loancalc.Round2(loan.Principal),
		TotalAmount:   terms.TotalPayable,
		TotalInterest: terms.TotalInterest,
		MonthlyEMI:    loan.MonthlyEMI,
		AmountPaid:    amountPaid(payments),
		BalanceAmount: loan.Balance,
		EMIsLeft:      loancalc.EMIsLeft(loan.Balance, loan.MonthlyEMI),
		Status:        loan.Status,
		Transactions:  transactions,
	}, nil
}

// GetCustomerOverview summarizes every loan a customer holds, newest first.
// A customer without loans is reported as not found.
func (l *Ledger) GetCustomerOverview(ctx context.Context, customerID string) (*models.CustomerOverview, error) {
	if _, err := l.storage.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, notFoundError("Customer with ID '%s' not found.", customerID)
		}
		return nil, storeError("failed to look up customer", err)
	}

	loans, err := l.storage.GetLoansForCustomer(ctx, customerID)
	if err != nil {
		return nil, storeError("failed to get customer loans", err)
	}
	if len(loans) == 0 {
		return nil, notFoundError("No loans found for customer with ID '%s'.", customerID)
	}

	overview := &models.CustomerOverview{
		CustomerID: customerID,
		TotalLoans: len(loans),
		Loans:      make([]models.LoanOverview, 0, len(loans)),
	}
	for _, loan := range loans {
		payments, err := l.storage.GetPaymentsForLoan(ctx, loan.ID)
		if err != nil {
			return nil, storeError("failed to get payments", err)
		}
		terms := loancalc.ComputeLoanTerms(loan.Principal, loan.InterestRate, loan.PeriodYears)
		overview.Loans = append(overview.Loans, models.LoanOverview{
			LoanID:        loan.ID,
			Principal:     loancalc.Round2(loan.Principal),
			TotalAmount:   terms.TotalPayable,
			TotalInterest: terms.TotalInterest,
			EMIAmount:     loan.MonthlyEMI,
			AmountPaid:    amountPaid(payments),
			EMIsLeft:      loancalc.EMIsLeft(loan.Balance, loan.MonthlyEMI),
			Status:        loan.Status,
		})
	}
	return overview, nil
}

// ListActiveLoans returns loans that still carry a balance, newest first.
func (l *Ledger) ListActiveLoans(ctx context.Context) ([]models.LoanSummary, error) {
	loans, err := l.storage.GetAllActiveLoans(ctx)
	if err != nil {
		return nil, storeError("failed to list active loans", err)
	}
	return summarize(loans), nil
}

// ListAllLoans returns every loan regardless of status, newest first.
func (l *Ledger) ListAllLoans(ctx context.Context) ([]models.LoanSummary, error) {
	loans, err := l.storage.GetAllLoans(ctx)
	if err != nil {
		return nil, storeError("failed to list loans", err)
	}
	return summarize(loans), nil
}

func summarize(loans []*models.Loan) []models.LoanSummary {
	out := make([]models.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		terms := loancalc.ComputeLoanTerms(loan.Principal, loan.InterestRate, loan.PeriodYears)
		out = append(out, models.LoanSummary{
			LoanID:          loan.ID,
			CustomerID:      loan.CustomerID,
			PrincipalAmount: loan.Principal,
			TotalAmount:     terms.TotalPayable,
			BalanceAmount:   loan.Balance,
			MonthlyEMI:      loan.MonthlyEMI,
			Status:          loan.Status,
		})
	}
	return out
}

// amountPaid is informational only; the stored balance stays authoritative.
func amountPaid(payments []*models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return loancalc.Round2(total)
}
