package conversation

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aspirebot/internal/calendar"
	"aspirebot/internal/chat"
	"aspirebot/internal/core"
)

// DoneOption submits the draft.
const DoneOption = "Done"

// User-facing texts.
const (
	textStart        = "Creating new transaction. \nDetails to fill in:  "
	textChooseGroup  = "Choose a Group"
	textPickCategory = "Pick Category"
	textPickAccount  = "Select which account"
	textPickDate     = "Please select a date: "
	textWentWrong    = "Something went wrong!"
	textBack         = "< Back"
	textNoCategories = "No categories are configured."
	textUnknownInput = "Please choose one of the options below."
)

func promptFor(f core.Field) string {
	return "What is the " + cases.Lower(language.English).String(string(f)) + "?"
}

func retryPrompt(f core.Field) string {
	return "Need a number for " + cases.Lower(language.English).String(string(f)) + ". Please try again."
}

func soFar(summary string) string {
	return "So far:" + summary + " Add More or done"
}

func saved(summary string) string {
	return "Information has been saved: " + summary + "\n /start to start again."
}

func selected(date string) string {
	return "You selected " + date
}

// menuKeyboard offers the six fields and Done.
func menuKeyboard() *chat.Keyboard {
	rows := [][]core.Field{
		{core.FieldOutflow, core.FieldInflow},
		{core.FieldCategory, core.FieldAccount},
		{core.FieldMemo, core.FieldDate},
	}
	kb := &chat.Keyboard{OneTime: true}
	for _, row := range rows {
		buttons := make([]chat.Button, 0, len(row))
		for _, f := range row {
			buttons = append(buttons, chat.Button{Text: string(f)})
		}
		kb.Rows = append(kb.Rows, buttons)
	}
	kb.Rows = append(kb.Rows, []chat.Button{{Text: DoneOption}})
	return kb
}

func accountsKeyboard(accounts core.Accounts) *chat.Keyboard {
	buttons := make([]chat.Button, 0, len(accounts))
	for _, a := range accounts {
		buttons = append(buttons, chat.Button{Text: a})
	}
	return &chat.Keyboard{Rows: chat.Pairs(buttons, 2), OneTime: true}
}

func groupsKeyboard(tree core.CategoryTree) *chat.Keyboard {
	groups := tree.Groups()
	buttons := make([]chat.Button, 0, len(groups))
	for i, g := range groups {
		buttons = append(buttons, chat.Button{Text: g, Data: categoryData(categoryGroup, categoryGroupIndex, g, i)})
	}
	return &chat.Keyboard{Rows: chat.Pairs(buttons, 2), Inline: true}
}

func itemsKeyboard(items []string) *chat.Keyboard {
	buttons := make([]chat.Button, 0, len(items))
	for i, item := range items {
		buttons = append(buttons, chat.Button{Text: item, Data: categoryData(categoryItem, categoryItemIndex, item, i)})
	}
	rows := chat.Pairs(buttons, 2)
	rows = append(rows, []chat.Button{{Text: textBack, Data: categoryCallback{Action: categoryBack}.encode()}})
	return &chat.Keyboard{Rows: rows, Inline: true}
}

// pickerKeyboard turns a calendar grid into an inline keyboard.
func pickerKeyboard(v calendar.View) *chat.Keyboard {
	grid := calendar.Render(v.Year, v.Month)
	kb := &chat.Keyboard{Inline: true, Rows: make([][]chat.Button, 0, len(grid))}
	for _, row := range grid {
		buttons := make([]chat.Button, 0, len(row))
		for _, cell := range row {
			buttons = append(buttons, chat.Button{Text: cell.Label, Data: cell.Data.Encode()})
		}
		kb.Rows = append(kb.Rows, buttons)
	}
	return kb
}

const (
	categoryGroup categoryAction = "group_sel"
	categoryItem  categoryAction = "cat_selection"
	categoryBack  categoryAction = "back"

	// Index forms stand in for names too long for a button payload.
	categoryGroupIndex categoryAction = "group_idx"
	categoryItemIndex  categoryAction = "cat_idx"
)

// maxCallbackData is the Bot API limit on callback_data, in bytes.
const maxCallbackData = 64

type (
	categoryAction string

	// categoryCallback is the payload of a category button: "<action>;<value>".
	categoryCallback struct {
		Action categoryAction
		Value  string
	}
)

func (c categoryCallback) encode() string {
	return string(c.Action) + ";" + c.Value
}

// categoryData names value in the payload when it fits and falls back to
// its position otherwise.
func categoryData(byName, byIndex categoryAction, value string, i int) string {
	if data := (categoryCallback{Action: byName, Value: value}).encode(); len(data) <= maxCallbackData {
		return data
	}
	return categoryCallback{Action: byIndex, Value: strconv.Itoa(i)}.encode()
}

// resolve turns an index payload back into a named one, using the groups of
// tree and the items of group.
func (c categoryCallback) resolve(tree core.CategoryTree, group string) (categoryCallback, bool) {
	var (
		list   []string
		action categoryAction
	)
	switch c.Action {
	case categoryGroupIndex:
		list, action = tree.Groups(), categoryGroup
	case categoryItemIndex:
		items, ok := tree.Items(group)
		if !ok {
			return categoryCallback{}, false
		}
		list, action = items, categoryItem
	default:
		return c, true
	}
	i, err := strconv.Atoi(c.Value)
	if err != nil || i < 0 || i >= len(list) {
		return categoryCallback{}, false
	}
	return categoryCallback{Action: action, Value: list[i]}, true
}

func decodeCategory(data string) (categoryCallback, bool) {
	action, value, ok := strings.Cut(data, ";")
	if !ok {
		return categoryCallback{}, false
	}
	switch a := categoryAction(action); a {
	case categoryGroup, categoryItem, categoryGroupIndex, categoryItemIndex:
		if value == "" {
			return categoryCallback{}, false
		}
		return categoryCallback{Action: a, Value: value}, true
	case categoryBack:
		return categoryCallback{Action: a}, true
	}
	return categoryCallback{}, false
}
