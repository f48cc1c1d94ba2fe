package returns

import (
	"fmt"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// PeriodRange maps a period code to its (start, end) dates for the given
// calendar day. end is always the day before today. start is the day before
// the window opens, so its valuation is the baseline investment. LQ and LY
// are the last calendar quarter and year that ended before today.
// All dates are midnight UTC.
func PeriodRange(code models.PeriodCode, today time.Time) (start, end time.Time, err error) {
	today = models.DateOf(today)
	end = today.AddDate(0, 0, -1)

	switch code {
	case models.Period1D:
		start = end.AddDate(0, 0, -1)
	case models.Period1M:
		start = addMonths(end, -1)
	case models.Period3M:
		start = addMonths(end, -3)
	case models.PeriodQTD:
		start = quarterStart(end).AddDate(0, 0, -1)
	case models.PeriodYTD:
		start = time.Date(end.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	case models.Period1Y:
		start = addMonths(end, -12)
	case models.Period3Y:
		start = addMonths(end, -36)
	case models.PeriodLQ:
		current := quarterStart(today)
		end = current.AddDate(0, 0, -1)
		start = addMonths(current, -3).AddDate(0, 0, -1)
	case models.PeriodLY:
		end = time.Date(today.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
		start = time.Date(today.Year()-2, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q: %w", code, models.ErrValidation)
	}
	return start, end, nil
}

// addMonths shifts d by n months, clamping the day to the target month's length.
func addMonths(d time.Time, n int) time.Time {
	y, m := d.Year(), int(d.Month())-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	day := d.Day()
	if last := daysIn(y, month); day > last {
		day = last
	}
	return time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// quarterStart returns the first day of the calendar quarter containing d.
func quarterStart(d time.Time) time.Time {
	m := ((int(d.Month())-1)/3)*3 + 1
	return time.Date(d.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}
