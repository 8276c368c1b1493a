// Package calendar renders a month-grid date picker and interprets presses
// on its cells. Both operations are pure; the chat layer turns a Grid into
// buttons and feeds button data back through Decode and Interpret.
package calendar

import (
	"strconv"
	"time"
)

// Weekdays is the header row, Monday first.
var Weekdays = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

const blank = " "

// Cell is one button of the grid.
type Cell struct {
	Label string
	Data  Callback
}

// Grid is the picker layout, row by row.
type Grid [][]Cell

// View identifies the month being shown.
type View struct {
	Year  int
	Month int
}

// ViewOf returns the month containing t.
func ViewOf(t time.Time) View {
	return View{Year: t.Year(), Month: int(t.Month())}
}

// Normalize folds out-of-range months into 1..12, carrying into the year.
func (v View) Normalize() View {
	return ViewOf(v.first())
}

func (v View) first() time.Time {
	return time.Date(v.Year, time.Month(v.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Prev is the month holding the day before the first of v.
func (v View) Prev() View {
	return ViewOf(v.first().AddDate(0, 0, -1))
}

// Next is the month holding the first of v plus 31 days. Anchoring on day 1
// always lands inside the following month.
func (v View) Next() View {
	return ViewOf(v.first().AddDate(0, 0, 31))
}

// DaysIn returns the number of days of the month.
func (v View) DaysIn() int {
	return time.Date(v.Year, time.Month(v.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Title is "<MonthName> <Year>".
func (v View) Title() string {
	return time.Month(v.Month).String() + " " + strconv.Itoa(v.Year)
}

// Render lays out the picker for year/month: a title row, the weekday
// header, one row per Monday-first week, and a "<", blank, ">" row.
func Render(year, month int) Grid {
	v := View{Year: year, Month: month}.Normalize()
	ignore := Callback{Action: ActionIgnore, Year: v.Year, Month: v.Month}

	grid := Grid{{{Label: v.Title(), Data: ignore}}}

	header := make([]Cell, 0, len(Weekdays))
	for _, wd := range Weekdays {
		header = append(header, Cell{Label: wd, Data: ignore})
	}
	grid = append(grid, header)

	offset := (int(v.first().Weekday()) + 6) % 7
	days := v.DaysIn()
	week := make([]Cell, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, Cell{Label: blank, Data: ignore})
	}
	for day := 1; day <= days; day++ {
		week = append(week, Cell{
			Label: strconv.Itoa(day),
			Data:  Callback{Action: ActionDay, Year: v.Year, Month: v.Month, Day: day},
		})
		if len(week) == 7 {
			grid = append(grid, week)
			week = make([]Cell, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Cell{Label: blank, Data: ignore})
		}
		grid = append(grid, week)
	}

	grid = append(grid, []Cell{
		{Label: "<", Data: Callback{Action: ActionPrevMonth, Year: v.Year, Month: v.Month, Day: 1}},
		{Label: blank, Data: ignore},
		{Label: ">", Data: Callback{Action: ActionNextMonth, Year: v.Year, Month: v.Month, Day: 1}},
	})
	return grid
}
