package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefix marks callback data produced by the picker.
const Prefix = "CALENDAR"

const (
	ActionUnknown Action = iota
	ActionIgnore
	ActionDay
	ActionPrevMonth
	ActionNextMonth
)

var (
	ErrMalformedCallback = errors.New("malformed calendar callback")
	ErrUnknownAction     = errors.New("unknown calendar action")
)

// Action tags what a picker cell does when pressed.
type Action int

var actionNames = map[Action]string{
	ActionIgnore:    "IGNORE",
	ActionDay:       "DAY",
	ActionPrevMonth: "PREV-MONTH",
	ActionNextMonth: "NEXT-MONTH",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseAction maps a wire tag back to its Action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Callback is the structured payload of a picker cell.
type Callback struct {
	Action Action
	Year   int
	Month  int
	Day    int
}

// Encode renders the callback as "CALENDAR;<ACTION>;<year>;<month>;<day>".
func (c Callback) Encode() string {
	return strings.Join([]string{
		Prefix,
		c.Action.String(),
		strconv.Itoa(c.Year),
		strconv.Itoa(c.Month),
		strconv.Itoa(c.Day),
	}, ";")
}

// IsCallback reports whether data was produced by the picker.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, Prefix+";")
}

// Decode parses data produced by Encode. An unrecognised action tag yields
// ErrUnknownAction with the numeric fields still populated.
func Decode(data string) (Callback, error) {
	parts := strings.Split(data, ";")
	if len(parts) != 5 || parts[0] != Prefix {
		return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	nums := make([]int, 3)
	for i, p := range parts[2:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
		}
		nums[i] = n
	}
	cb := Callback{Year: nums[0], Month: nums[1], Day: nums[2]}
	action, err := ParseAction(parts[1])
	if err != nil {
		return cb, err
	}
	cb.Action = action
	return cb, nil
}
