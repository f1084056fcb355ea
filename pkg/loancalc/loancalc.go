// Package loancalc holds the simple-interest arithmetic behind every loan:
// total payable, the equated monthly installment and how many installments
// a balance still represents. All functions are pure.
package loancalc

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const currencyPlaces = 2

// MaxPeriodYears bounds the loan term.
const MaxPeriodYears = 100

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)

	maxInstallments = decimal.NewFromInt(math.MaxInt32)
)

var (
	ErrNonPositivePrincipal = errors.New("principal must be positive")
	ErrNegativeRate         = errors.New("interest rate must not be negative")
	ErrNonPositivePeriod    = errors.New("loan period must be at least one year")
	ErrPeriodTooLong        = errors.New("loan period must not exceed 100 years")
)

// Terms are the amounts fixed when a loan is issued.
type Terms struct {
	TotalInterest      decimal.Decimal
	TotalPayable       decimal.Decimal
	MonthlyInstallment decimal.Decimal
}

// Round2 rounds to whole cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

// ValidateTerms checks the preconditions of ComputeLoanTerms.
func ValidateTerms(principal, annualRatePercent decimal.Decimal, years int) error {
	if !principal.IsPositive() {
		return ErrNonPositivePrincipal
	}
	if annualRatePercent.IsNegative() {
		return ErrNegativeRate
	}
	if years <= 0 {
		return ErrNonPositivePeriod
	}
	if years > MaxPeriodYears {
		return ErrPeriodTooLong
	}
	return nil
}

// ComputeLoanTerms derives interest, total payable and the monthly installment.
// Every intermediate amount is rounded to cents before it feeds the next one.
func ComputeLoanTerms(principal, annualRatePercent decimal.Decimal, years int) Terms {
	y := decimal.NewFromInt(int64(years))

	totalInterest := Round2(principal.Mul(y).Mul(annualRatePercent).Div(hundred))
	totalPayable := Round2(principal.Add(totalInterest))

	installment := decimal.Zero
	if months := y.Mul(monthsPerYear); months.IsPositive() {
		installment = totalPayable.DivRound(months, currencyPlaces)
	}

	return Terms{
		TotalInterest:      totalInterest,
		TotalPayable:       totalPayable,
		MonthlyInstallment: installment,
	}
}

// EMIsLeft is the number of installments needed to clear balance, rounding up.
// It is 0 for a cleared balance or a zero installment, and saturates at math.MaxInt32.
func EMIsLeft(balance, installment decimal.Decimal) int {
	if !balance.IsPositive() || !installment.IsPositive() {
		return 0
	}
	q, r := balance.QuoRem(installment, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	if q.GreaterThanOrEqual(maxInstallments) {
		return math.MaxInt32
	}
	return int(q.IntPart())
}

// NextBalance applies a payment to a balance, clamping at zero.
func NextBalance(balance, amount decimal.Decimal) decimal.Decimal {
	next := balance.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero
	}
	return Round2(next)
}
