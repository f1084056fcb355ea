package loancalc

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeLoanTerms(t *testing.T) {
	tests := []struct {
		name        string
		principal   string
		rate        string
		years       int
		interest    string
		payable     string
		installment string
	}{
		{
			name:      "one year at ten percent",
			principal: "12000", rate: "10", years: 1,
			interest: "1200.00", payable: "13200.00", installment: "1100.00",
		},
		{
			name:      "zero rate",
			principal: "6000", rate: "0", years: 2,
			interest: "0", payable: "6000", installment: "250",
		},
		{
			name:      "installment below half cent rounds down",
			principal: "1000", rate: "5", years: 3,
			interest: "150", payable: "1150", installment: "31.94",
		},
		{
			name:      "installment on half cent rounds away from zero",
			principal: "300.18", rate: "0", years: 1,
			interest: "0", payable: "300.18", installment: "25.02",
		},
		{
			name:      "interest rounded before total",
			principal: "333.33", rate: "7.5", years: 1,
			interest: "25.00", payable: "358.33", installment: "29.86",
		},
		{
			name:      "fractional principal over many years",
			principal: "25000.50", rate: "8.25", years: 5,
			interest: "10312.71", payable: "35313.21", installment: "588.55",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLoanTerms(dec(tt.principal), dec(tt.rate), tt.years)
			assert.True(t, got.TotalInterest.Equal(dec(tt.interest)), "interest: got %s want %s", got.TotalInterest, tt.interest)
			assert.True(t, got.TotalPayable.Equal(dec(tt.payable)), "payable: got %s want %s", got.TotalPayable, tt.payable)
			assert.True(t, got.MonthlyInstallment.Equal(dec(tt.installment)), "installment: got %s want %s", got.MonthlyInstallment, tt.installment)
		})
	}
}

func TestComputeLoanTerms_ZeroPeriodHasNoInstallment(t *testing.T) {
	got := ComputeLoanTerms(dec("1000"), dec("10"), 0)
	assert.True(t, got.MonthlyInstallment.IsZero())
	assert.True(t, got.TotalPayable.Equal(dec("1000")))
}

func TestComputeLoanTerms_Deterministic(t *testing.T) {
	a := ComputeLoanTerms(dec("98765.43"), dec("11.11"), 7)
	b := ComputeLoanTerms(dec("98765.43"), dec("11.11"), 7)
	assert.True(t, a.TotalInterest.Equal(b.TotalInterest))
	assert.True(t, a.TotalPayable.Equal(b.TotalPayable))
	assert.True(t, a.MonthlyInstallment.Equal(b.MonthlyInstallment))
}

func TestComputeLoanTerms_InstallmentsCoverPayable(t *testing.T) {
	principals := []string{"0.01", "1", "999.99", "12000", "50000.55", "1234567.89"}
	rates := []string{"0", "0.5", "7.25", "10", "33.3"}

	for _, p := range principals {
		for _, r := range rates {
			for years := 1; years <= 30; years += 7 {
				terms := ComputeLoanTerms(dec(p), dec(r), years)
				months := decimal.NewFromInt(int64(years * 12))

				wantPayable := Round2(dec(p).Add(Round2(dec(p).Mul(decimal.NewFromInt(int64(years))).Mul(dec(r)).Div(hundred))))
				require.True(t, terms.TotalPayable.Equal(wantPayable), "p=%s r=%s y=%d", p, r, years)

				// each installment is off by at most half a cent
				drift := terms.MonthlyInstallment.Mul(months).Sub(terms.TotalPayable).Abs()
				tolerance := dec("0.005").Mul(months)
				assert.True(t, drift.LessThanOrEqual(tolerance), "p=%s r=%s y=%d drift=%s", p, r, years, drift)
			}
		}
	}
}

func TestValidateTerms(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		years     int
		want      error
	}{
		{"valid", "100", "5", 1, nil},
		{"zero rate is allowed", "100", "0", 1, nil},
		{"zero principal", "0", "5", 1, ErrNonPositivePrincipal},
		{"negative principal", "-1", "5", 1, ErrNonPositivePrincipal},
		{"negative rate", "100", "-0.01", 1, ErrNegativeRate},
		{"zero years", "100", "5", 0, ErrNonPositivePeriod},
		{"longest term", "100", "5", MaxPeriodYears, nil},
		{"term too long", "100", "5", MaxPeriodYears + 1, ErrPeriodTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateTerms(dec(tt.principal), dec(tt.rate), tt.years))
		})
	}
}

func TestEMIsLeft(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		installment string
		want        int
	}{
		{"exact multiple", "13200", "1100", 12},
		{"partial installment rounds up", "12100.01", "1100", 12},
		{"less than one installment", "0.01", "1100", 1},
		{"paid off", "0", "1100", 0},
		{"zero installment", "500", "0", 0},
		{"negative balance", "-5", "100", 0},
		{"count beyond int32 saturates", "1e20", "8.33", math.MaxInt32},
		{"count at int32 limit", "2147483647", "1", math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EMIsLeft(dec(tt.balance), dec(tt.installment)))
		})
	}
}

func TestEMIsLeft_NeverNegative(t *testing.T) {
	terms := ComputeLoanTerms(dec("1e20"), dec("0"), MaxPeriodYears)
	n := EMIsLeft(terms.TotalPayable, terms.MonthlyInstallment)
	// The rounded-down installment leaves a 4 cent remainder.
	assert.Equal(t, MaxPeriodYears*12+1, n)

	huge := EMIsLeft(dec("1e40"), dec("0.01"))
	assert.Equal(t, math.MaxInt32, huge)
}

func TestNextBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		amount  string
		want    string
	}{
		{"partial", "1100", "400", "700"},
		{"exact", "1100", "1100", "0"},
		{"overpayment clamps", "1100", "1500", "0"},
		{"sub-cent payment rounds", "100", "0.004", "100"},
		{"half cent rounds away from zero", "50", "0.015", "49.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBalance(dec(tt.balance), dec(tt.amount))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}
