package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/banklend/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_store.db"), Options{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCustomer(t *testing.T, s *SQLiteStore, name string) *models.Customer {
	t.Helper()
	c := &models.Customer{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
	if err := s.CreateCustomer(context.Background(), c); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return c
}

func newLoan(customerID string, createdAt time.Time) *models.Loan {
	return &models.Loan{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Principal:    decimal.NewFromInt(12000),
		InterestRate: decimal.NewFromInt(10),
		PeriodYears:  1,
		TotalPayable: decimal.RequireFromString("13200.00"),
		MonthlyEMI:   decimal.RequireFromString("1100.00"),
		Balance:      decimal.RequireFromString("13200.00"),
		Status:       models.LoanStatusActive,
		CreatedAt:    createdAt,
	}
}

func TestSQLiteStore_CreateAndGetLoan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	customer := seedCustomer(t, s, "Alice Smith")

	loan := newLoan(customer.ID, time.Now())
	if err := s.CreateLoan(ctx, loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	fetched, err := s.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("Failed to get loan: %v", err)
	}

	if fetched.CustomerID != loan.CustomerID {
		t.Errorf("Expected CustomerID %s, got %s", loan.CustomerID, fetched.CustomerID)
	}
	if !fetched.Principal.Equal(loan.Principal) {
		t.Errorf("Expected Principal %s, got %s", loan.Principal, fetched.Principal)
	}
	if !fetched.MonthlyEMI.Equal(loan.MonthlyEMI) {
		t.Errorf("Expected MonthlyEMI %s, got %s", loan.MonthlyEMI, fetched.MonthlyEMI)
	}
	if fetched.PeriodYears != 1 {
		t.Errorf("Expected PeriodYears 1, got %d", fetched.PeriodYears)
	}
	if fetched.Status != models.LoanStatusActive {
		t.Errorf("Expected status ACTIVE, got %s", fetched.Status)
	}
}

func TestSQLiteStore_GetLoanNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLoan(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestSQLiteStore_LoanRequiresCustomer(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateLoan(context.Background(), newLoan("nobody", time.Now()))
	assert.Error(t, err, "foreign key should reject a loan for an unknown customer")
}

func TestSQLiteStore_Customers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bob := seedCustomer(t, s, "Bob Johnson")
	seedCustomer(t, s, "Alice Smith")

	got, err := s.GetCustomer(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob Johnson", got.Name)

	_, err = s.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	all, err := s.GetAllCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice Smith", all[0].Name)
	assert.Equal(t, "Bob Johnson", all[1].Name)
}

func TestSQLiteStore_LoanListings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedCustomer(t, s, "Alice Smith")
	bob := seedCustomer(t, s, "Bob Johnson")

	base := time.Now().Add(-time.Hour)
	older := newLoan(alice.ID, base)
	newer := newLoan(alice.ID, base.Add(time.Minute))
	closed := newLoan(bob.ID, base.Add(2*time.Minute))
	closed.Balance = decimal.Zero
	closed.Status = models.LoanStatusPaidOff
	for _, l := range []*models.Loan{older, newer, closed} {
		require.NoError(t, s.CreateLoan(ctx, l))
	}

	all, err := s.GetAllLoans(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, closed.ID, all[0].ID)
	assert.Equal(t, older.ID, all[2].ID)

	active, err := s.GetAllActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)

	forAlice, err := s.GetLoansForCustomer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, forAlice, 2)
	assert.Equal(t, newer.ID, forAlice[0].ID)
	assert.Equal(t, older.ID, forAlice[1].ID)
}

func TestSQLiteStore_RecordPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	customer := seedCustomer(t, s, "Alice Smith")
	loan := newLoan(customer.ID, time.Now())
	require.NoError(t, s.CreateLoan(ctx, loan))

	amount := decimal.RequireFromString("1100.00")
	var paymentID uuid.UUID
	err := s.RecordPayment(ctx, loan.ID, func(l *models.Loan) (*models.Payment, error) {
		assert.True(t, l.Balance.Equal(loan.Balance), "apply should see the stored balance")
		l.Balance = l.Balance.Sub(amount)
		paymentID = uuid.New()
		return &models.Payment{ID: paymentID, LoanID: l.ID, Amount: amount, Type: models.PaymentTypeEMI, CreatedAt: time.Now()}, nil
	})
	require.NoError(t, err)

	fetched, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(decimal.RequireFromString("12100")), "got %s", fetched.Balance)

	payments, err := s.GetPaymentsForLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paymentID, payments[0].ID)
	assert.Equal(t, loan.ID, payments[0].LoanID)
	assert.True(t, payments[0].Amount.Equal(amount))
	assert.Equal(t, models.PaymentTypeEMI, payments[0].Type)
}

func TestSQLiteStore_RecordPaymentRejectedByApply(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	customer := seedCustomer(t, s, "Alice Smith")
	loan := newLoan(customer.ID, time.Now())
	require.NoError(t, s.CreateLoan(ctx, loan))

	errClosed := errors.New("closed")
	err := s.RecordPayment(ctx, loan.ID, func(l *models.Loan) (*models.Payment, error) {
		l.Balance = decimal.Zero
		return nil, errClosed
	})
	assert.ErrorIs(t, err, errClosed)

	fetched, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(loan.Balance), "balance must be untouched")

	payments, err := s.GetPaymentsForLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestSQLiteStore_RecordPaymentUnknownLoan(t *testing.T) {
	s := newTestStore(t)
	called := false
	err := s.RecordPayment(context.Background(), uuid.New(), func(l *models.Loan) (*models.Payment, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrLoanNotFound)
	assert.False(t, called)
}

func TestSQLiteStore_PaymentsInChronologicalOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	customer := seedCustomer(t, s, "Alice Smith")
	loan := newLoan(customer.ID, time.Now())
	require.NoError(t, s.CreateLoan(ctx, loan))

	base := time.Now()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		err := s.RecordPayment(ctx, loan.ID, func(l *models.Loan) (*models.Payment, error) {
			p := &models.Payment{ID: uuid.New(), LoanID: l.ID, Amount: decimal.NewFromInt(100), Type: models.PaymentTypeLumpSum, CreatedAt: at}
			l.Balance = l.Balance.Sub(p.Amount)
			ids = append(ids, p.ID)
			return p, nil
		})
		require.NoError(t, err)
	}

	payments, err := s.GetPaymentsForLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	for i, p := range payments {
		assert.Equal(t, ids[i], p.ID)
	}
}

func TestSeedSampleCustomers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, SeedSampleCustomers(ctx, s, nil))
	customers, err := s.GetAllCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Alice Smith", customers[0].Name)
	assert.Equal(t, "Bob Johnson", customers[1].Name)

	// second boot leaves the table alone
	require.NoError(t, SeedSampleCustomers(ctx, s, nil))
	customers, err = s.GetAllCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}
