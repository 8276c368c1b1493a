// Package conversation runs the data-entry dialogue: a per-user state
// machine that fills a core.Draft field by field and hands the finished
// transaction to a sheets.TransactionWriter.
package conversation

import (
	"aspirebot/internal/calendar"
	"aspirebot/internal/core"
)

const (
	Idle State = iota
	ChoosingField
	AwaitingCategoryGroup
	AwaitingCategoryItem
	AwaitingFieldReply
	AwaitingDateNav
)

// State is where a session is in the dialogue.
type State int

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ChoosingField:
		return "ChoosingField"
	case AwaitingCategoryGroup:
		return "AwaitingCategoryGroup"
	case AwaitingCategoryItem:
		return "AwaitingCategoryItem"
	case AwaitingFieldReply:
		return "AwaitingFieldReply"
	case AwaitingDateNav:
		return "AwaitingDateNav"
	}
	return "Unknown"
}

// Session is the per-user conversation state. The zero value is Idle.
type Session struct {
	State State
	Draft core.Draft
	// Pending is the field awaiting a text reply in AwaitingFieldReply.
	Pending core.Field
	// Group is the category group being browsed in AwaitingCategoryItem.
	Group string
	// View is the month shown while AwaitingDateNav.
	View calendar.View
}

// Active reports whether a transaction is being collected.
func (s Session) Active() bool {
	return s.State != Idle
}
