package market

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidLoan = errors.New("invalid loan terms")

type Payment struct {
	Price         float64 `json:"price"`
	DownPayment   float64 `json:"down_payment"`
	LoanAmount    float64 `json:"loan_amount"`
	RatePct       float64 `json:"rate_pct"`
	Years         int     `json:"years"`
	Monthly       float64 `json:"monthly"`
	TotalPaid     float64 `json:"total_paid"`
	TotalInterest float64 `json:"total_interest"`
}

// MonthlyPayment computes a fixed-rate amortised mortgage payment.
// downPct and annualRatePct are percentages (20 means 20%).
func MonthlyPayment(price, downPct, annualRatePct float64, years int) (*Payment, error) {
	if price <= 0 || years <= 0 || downPct < 0 || downPct > 100 || annualRatePct < 0 {
		return nil, fmt.Errorf("%w: price=%v down=%v%% rate=%v%% years=%d", ErrInvalidLoan, price, downPct, annualRatePct, years)
	}

	down := price * downPct / 100
	principal := price - down
	n := float64(years * 12)
	r := annualRatePct / 100 / 12

	var monthly float64
	if r == 0 {
		monthly = principal / n
	} else {
		monthly = principal * r / (1 - math.Pow(1+r, -n))
	}

	total := monthly * n
	return &Payment{
		Price:         price,
		DownPayment:   down,
		LoanAmount:    principal,
		RatePct:       annualRatePct,
		Years:         years,
		Monthly:       monthly,
		TotalPaid:     total,
		TotalInterest: total - principal,
	}, nil
}
