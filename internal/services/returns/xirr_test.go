package returns

import (
	"math"
	"testing"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func npvAt(flows []scheduledFlow, r float64) float64 {
	sum := 0.0
	for _, f := range flows {
		sum += f.amount / math.Pow(1+r, f.t)
	}
	return sum
}

func TestXIRR_RoundTrip(t *testing.T) {
	flows := []scheduledFlow{{t: 0, amount: -1000}, {t: 1, amount: 1100}}
	rate, ok := solveXIRR(flows)
	if !ok {
		t.Fatal("expected convergence")
	}
	if !approxEqual(rate, 0.10, 1e-6) {
		t.Errorf("rate = %.8f, want 0.10", rate)
	}
}

func TestXIRR_Loss(t *testing.T) {
	// The first Newton step overshoots below -100% and is clamped
	flows := []scheduledFlow{{t: 0, amount: -1000}, {t: 1, amount: 500}}
	rate, ok := solveXIRR(flows)
	if !ok {
		t.Fatal("expected convergence")
	}
	if !approxEqual(rate, -0.5, 1e-6) {
		t.Errorf("rate = %.8f, want -0.5", rate)
	}
}

func TestXIRR_SettlesOnFloor(t *testing.T) {
	// True root is -0.999; every step is clamped back to the floor
	flows := []scheduledFlow{{t: 0, amount: -1000}, {t: 1, amount: 1}}
	rate, ok := solveXIRR(flows)
	if !ok {
		t.Fatal("expected convergence")
	}
	if rate != rateFloor {
		t.Errorf("rate = %.8f, want %.2f", rate, rateFloor)
	}
}

func TestXIRR_MidPeriodDeposit(t *testing.T) {
	flows := []scheduledFlow{
		{t: 0, amount: -1000},
		{t: 0.5, amount: -500},
		{t: 1, amount: 1600},
	}
	rate, ok := solveXIRR(flows)
	if !ok {
		t.Fatal("expected convergence")
	}
	if rate <= 0 || rate >= 0.1 {
		t.Errorf("rate = %.8f, want between 0 and 10%%", rate)
	}
	if npv := npvAt(flows, rate); !approxEqual(npv, 0, 1e-4) {
		t.Errorf("NPV at solved rate = %g, want ~0", npv)
	}
}

func TestXIRR_RoundsToEightPlaces(t *testing.T) {
	flows := []scheduledFlow{{t: 0, amount: -3000}, {t: 0.37, amount: 250}, {t: 1, amount: 2900}}
	rate, ok := solveXIRR(flows)
	if !ok {
		t.Fatal("expected convergence")
	}
	if rate != round8(rate) {
		t.Errorf("rate %v is not rounded to 8 places", rate)
	}
}

func TestXIRR_NoSignChangeDoesNotConverge(t *testing.T) {
	flows := []scheduledFlow{{t: 0, amount: 100}, {t: 1, amount: 100}}
	if rate, ok := solveXIRR(flows); ok {
		t.Errorf("expected no convergence, got rate %v", rate)
	}
}

func TestBuildSchedule(t *testing.T) {
	start := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	flows := []models.ExternalCashFlow{
		{Date: time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC), Amount: 300},
		{Date: time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC), Amount: -200},
	}

	schedule := buildSchedule(start, end, 1000, 1200, flows)
	if len(schedule) != 4 {
		t.Fatalf("len(schedule) = %d, want 4", len(schedule))
	}
	want := []scheduledFlow{
		{t: 0, amount: -1000},
		{t: 3.0 / 30.0, amount: 200},
		{t: 16.0 / 30.0, amount: -300},
		{t: 1, amount: 1200},
	}
	for i, w := range want {
		if !approxEqual(schedule[i].t, w.t, 1e-12) || schedule[i].amount != w.amount {
			t.Errorf("schedule[%d] = %+v, want %+v", i, schedule[i], w)
		}
	}
}
