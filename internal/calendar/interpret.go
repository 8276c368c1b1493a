package calendar

import "time"

const (
	OutcomeNoop OutcomeKind = iota
	OutcomeNavigate
	OutcomeSelected
	OutcomeUnknown
)

// OutcomeKind says what a press on the picker means.
type OutcomeKind int

// Outcome is the result of Interpret. View is set for OutcomeNavigate,
// Date for OutcomeSelected.
type Outcome struct {
	Kind OutcomeKind
	View View
	Date time.Time
}

// Interpret maps a decoded callback to the next step of the picker.
func Interpret(cb Callback) Outcome {
	v := View{Year: cb.Year, Month: cb.Month}
	switch cb.Action {
	case ActionIgnore:
		return Outcome{Kind: OutcomeNoop}
	case ActionDay:
		if cb.Month < 1 || cb.Month > 12 || cb.Day < 1 || cb.Day > v.DaysIn() {
			return Outcome{Kind: OutcomeUnknown}
		}
		return Outcome{
			Kind: OutcomeSelected,
			Date: time.Date(cb.Year, time.Month(cb.Month), cb.Day, 0, 0, 0, 0, time.UTC),
		}
	case ActionPrevMonth:
		return Outcome{Kind: OutcomeNavigate, View: v.Normalize().Prev()}
	case ActionNextMonth:
		return Outcome{Kind: OutcomeNavigate, View: v.Normalize().Next()}
	}
	return Outcome{Kind: OutcomeUnknown}
}

// InterpretData decodes raw button data and interprets it; anything that
// does not decode is OutcomeUnknown.
func InterpretData(data string) Outcome {
	cb, err := Decode(data)
	if err != nil {
		return Outcome{Kind: OutcomeUnknown}
	}
	return Interpret(cb)
}
