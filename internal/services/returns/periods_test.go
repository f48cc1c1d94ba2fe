package returns

import (
	"testing"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodRange(t *testing.T) {
	today := date(2024, 5, 16)
	tests := []struct {
		code      models.PeriodCode
		wantStart time.Time
		wantEnd   time.Time
	}{
		{models.Period1D, date(2024, 5, 14), date(2024, 5, 15)},
		{models.Period1M, date(2024, 4, 15), date(2024, 5, 15)},
		{models.Period3M, date(2024, 2, 15), date(2024, 5, 15)},
		{models.PeriodQTD, date(2024, 3, 31), date(2024, 5, 15)},
		{models.PeriodYTD, date(2023, 12, 31), date(2024, 5, 15)},
		{models.Period1Y, date(2023, 5, 15), date(2024, 5, 15)},
		{models.Period3Y, date(2021, 5, 15), date(2024, 5, 15)},
		{models.PeriodLQ, date(2023, 12, 31), date(2024, 3, 31)},
		{models.PeriodLY, date(2022, 12, 31), date(2023, 12, 31)},
	}
	for _, tt := range tests {
		start, end, err := PeriodRange(tt.code, today)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.code, err)
		}
		if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
			t.Errorf("%s = (%s, %s), want (%s, %s)", tt.code,
				start.Format("2006-01-02"), end.Format("2006-01-02"),
				tt.wantStart.Format("2006-01-02"), tt.wantEnd.Format("2006-01-02"))
		}
	}
}

func TestPeriodRange_MonthEndClamp(t *testing.T) {
	// Yesterday is 31 March in a leap year
	start, _, err := PeriodRange(models.Period1M, date(2024, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	if want := date(2024, 2, 29); !start.Equal(want) {
		t.Errorf("1M start = %s, want %s", start.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	start, _, err = PeriodRange(models.Period3M, date(2023, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if want := date(2023, 2, 28); !start.Equal(want) {
		t.Errorf("3M start = %s, want %s", start.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestPeriodRange_QuarterBoundary(t *testing.T) {
	// On 1 April yesterday closes Q1: QTD covers the whole of Q1 and LQ is Q1 too
	today := date(2024, 4, 1)

	start, end, _ := PeriodRange(models.PeriodQTD, today)
	if !start.Equal(date(2023, 12, 31)) || !end.Equal(date(2024, 3, 31)) {
		t.Errorf("QTD = (%s, %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	start, end, _ = PeriodRange(models.PeriodLQ, today)
	if !start.Equal(date(2023, 12, 31)) || !end.Equal(date(2024, 3, 31)) {
		t.Errorf("LQ = (%s, %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
}

func TestPeriodRange_NewYear(t *testing.T) {
	today := date(2024, 1, 1)

	start, end, _ := PeriodRange(models.PeriodYTD, today)
	if !start.Equal(date(2022, 12, 31)) || !end.Equal(date(2023, 12, 31)) {
		t.Errorf("YTD = (%s, %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	start, end, _ = PeriodRange(models.PeriodLY, today)
	if !start.Equal(date(2022, 12, 31)) || !end.Equal(date(2023, 12, 31)) {
		t.Errorf("LY = (%s, %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	start, _, _ = PeriodRange(models.PeriodLQ, today)
	if !start.Equal(date(2023, 9, 30)) {
		t.Errorf("LQ start = %s, want 2023-09-30", start.Format("2006-01-02"))
	}
}

func TestPeriodRange_Unknown(t *testing.T) {
	if _, _, err := PeriodRange(models.PeriodCode("5Y"), date(2024, 1, 1)); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{date(2024, 1, 31), 1, date(2024, 2, 29)},
		{date(2024, 1, 15), -1, date(2023, 12, 15)},
		{date(2024, 1, 15), -13, date(2022, 12, 15)},
		{date(2024, 2, 29), -12, date(2023, 2, 28)},
		{date(2024, 12, 31), 2, date(2025, 2, 28)},
	}
	for _, tt := range tests {
		if got := addMonths(tt.in, tt.n); !got.Equal(tt.want) {
			t.Errorf("addMonths(%s, %d) = %s, want %s", tt.in.Format("2006-01-02"), tt.n, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}
}
