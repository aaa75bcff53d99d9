package worklog

import "worklog/internal/core"

const daysPerWeek = 7

type (
	// Cell is one day on the month grid. Entries holds every entry whose
	// work date equals the cell's date; multiple entries per day are kept
	// separate, not summed.
	Cell struct {
		Date       core.Date
		Selectable bool
		Entries    []core.WorkLogEntry
	}

	// Grid is a rectangular Monday-first month grid. Cells covers every week
	// intersecting the view month, so its length is always a multiple of 7
	// and leading/trailing cells belong to adjacent months.
	Grid struct {
		Month core.Month
		Cells []Cell
	}
)

// BuildMonthGrid lays the given entries onto the grid for viewMonth.
// A cell is selectable when a new entry could be created on it: not a
// weekend, not after today, and inside the viewed month — the same rules the
// validator enforces on submission.
func BuildMonthGrid(entries []core.WorkLogEntry, viewMonth core.Month, today core.Date) Grid {
	byDay := make(map[string][]core.WorkLogEntry)
	for _, e := range entries {
		key := e.WorkDate.String()
		byDay[key] = append(byDay[key], e)
	}

	first := viewMonth.Start().StartOfWeek()
	last := viewMonth.End().EndOfWeek()

	var cells []Cell
	for d := first; !d.After(last); d = d.AddDays(1) {
		cells = append(cells, Cell{
			Date:       d,
			Selectable: !d.IsWeekend() && !d.After(today) && viewMonth.Contains(d),
			Entries:    byDay[d.String()],
		})
	}
	return Grid{Month: viewMonth, Cells: cells}
}

// Weeks returns the grid split into rows of seven cells.
func (g Grid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g.Cells)/daysPerWeek)
	for i := 0; i+daysPerWeek <= len(g.Cells); i += daysPerWeek {
		weeks = append(weeks, g.Cells[i:i+daysPerWeek])
	}
	return weeks
}

// CellOn returns the cell carrying date, if the grid covers it.
func (g Grid) CellOn(date core.Date) (Cell, bool) {
	for _, c := range g.Cells {
		if c.Date.SameDay(date) {
			return c, true
		}
	}
	return Cell{}, false
}

// DailyHours sums the hours logged on one cell.
func DailyHours(c Cell) float64 {
	var total float64
	for _, e := range c.Entries {
		total += e.HoursWorked
	}
	return total
}

// RangeHours sums hours for entries whose work date falls in [from, to],
// the rollup used by week and month reports.
func RangeHours(entries []core.WorkLogEntry, from, to core.Date) float64 {
	iv := core.Interval{From: from, To: to}
	var total float64
	for _, e := range entries {
		if iv.Contains(e.WorkDate) {
			total += e.HoursWorked
		}
	}
	return total
}

// MonthHours sums hours for entries inside the grid's view month only;
// leading and trailing cells from adjacent months do not count.
func (g Grid) MonthHours() float64 {
	var total float64
	for _, c := range g.Cells {
		if g.Month.Contains(c.Date) {
			total += DailyHours(c)
		}
	}
	return total
}
