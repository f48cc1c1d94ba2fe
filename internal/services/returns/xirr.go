package returns

import (
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// scheduledFlow is one entry of an XIRR schedule. t is the position within
// the window, 0 at the start valuation and 1 at the end valuation.
// Negative amounts are money put in by the investor.
type scheduledFlow struct {
	t      float64
	amount float64
}

// buildSchedule lays out the start value, the external cash flows and the end
// value over [start, end]. Deposits become investor outflows (negative) and
// withdrawals inflows (positive).
func buildSchedule(start, end time.Time, startValue, endValue float64, flows []models.ExternalCashFlow) []scheduledFlow {
	span := end.Sub(start).Hours() / 24

	schedule := make([]scheduledFlow, 0, len(flows)+2)
	schedule = append(schedule, scheduledFlow{t: 0, amount: -startValue})
	for _, f := range flows {
		days := models.DateOf(f.Date).Sub(start).Hours() / 24
		schedule = append(schedule, scheduledFlow{t: days / span, amount: -f.Amount})
	}
	schedule = append(schedule, scheduledFlow{t: 1, amount: endValue})

	sort.SliceStable(schedule, func(i, j int) bool { return schedule[i].t < schedule[j].t })
	return schedule
}

// rateFloor is where a Newton step that would reach -100% is clamped. A result
// equal to it means the true rate may be lower.
const rateFloor = -0.99

// solveXIRR finds r with sum(amount / (1+r)^t) = 0 using Newton-Raphson.
// ok is false when the solver does not converge within the iteration budget
// or the derivative vanishes. The rate is rounded to 8 decimal places.
func solveXIRR(flows []scheduledFlow) (rate float64, ok bool) {
	const (
		maxIter = 100
		tol     = 1e-8
		guess   = 0.1
	)

	r := guess
	for iter := 0; iter < maxIter; iter++ {
		npv, dnpv := 0.0, 0.0
		base := 1 + r
		for _, f := range flows {
			discount := math.Pow(base, f.t)
			npv += f.amount / discount
			dnpv -= f.t * f.amount / (discount * base)
		}

		if dnpv == 0 || math.IsNaN(npv) || math.IsInf(npv, 0) {
			return 0, false
		}

		next := r - npv/dnpv
		// A rate at or below -100% has no meaning for fractional exponents
		if next <= -1 {
			next = rateFloor
		}
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if math.Abs(next-r) < tol {
			return round8(next), true
		}
		r = next
	}
	return 0, false
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
