package conversation

import (
	"strings"
	"testing"

	"aspirebot/internal/calendar"
	"aspirebot/internal/core"
)

func TestDecodeCategory(t *testing.T) {
	cases := []struct {
		data string
		want categoryCallback
		ok   bool
	}{
		{"group_sel;Food", categoryCallback{Action: categoryGroup, Value: "Food"}, true},
		{"cat_selection;Rent; deposit", categoryCallback{Action: categoryItem, Value: "Rent; deposit"}, true},
		{"back;", categoryCallback{Action: categoryBack}, true},
		{"back;ignored", categoryCallback{Action: categoryBack}, true},
		{"group_sel;", categoryCallback{}, false},
		{"group_sel", categoryCallback{}, false},
		{"CALENDAR;DAY;2024;1;1", categoryCallback{}, false},
	}
	for _, tc := range cases {
		got, ok := decodeCategory(tc.data)
		if ok != tc.ok || got != tc.want {
			t.Errorf("decodeCategory(%q) = %+v, %v; want %+v, %v", tc.data, got, ok, tc.want, tc.ok)
		}
		if ok && tc.want.Action != categoryBack {
			if again, _ := decodeCategory(got.encode()); again != got {
				t.Errorf("%q does not round-trip", tc.data)
			}
		}
	}
}

func TestLongCategoryNamesFitCallbackLimit(t *testing.T) {
	longGroup := "Household " + strings.Repeat("maintenance-", 5) + "costs"
	longItem := "Electricity, water and " + strings.Repeat("internet-", 5) + "bills"
	tree := core.NewCategoryTree(
		[]core.CategoryGroup{
			{Name: "Food", Categories: []string{"Groceries"}},
			{Name: longGroup, Categories: []string{"Repairs", longItem}},
		},
		[]string{"Groceries", "Repairs", longItem},
	)

	groups := groupsKeyboard(tree)
	var groupData string
	for _, row := range groups.Rows {
		for _, b := range row {
			if len(b.Data) > maxCallbackData {
				t.Fatalf("group %q payload is %d bytes", b.Text, len(b.Data))
			}
			if b.Text == longGroup {
				groupData = b.Data
			}
			if b.Text == "Food" && b.Data != "group_sel;Food" {
				t.Fatalf("short names keep the named form, got %q", b.Data)
			}
		}
	}
	cb, ok := decodeCategory(groupData)
	if ok {
		cb, ok = cb.resolve(tree, "")
	}
	if !ok || cb != (categoryCallback{Action: categoryGroup, Value: longGroup}) {
		t.Fatalf("long group did not resolve: %+v, %v", cb, ok)
	}

	items, _ := tree.Items(longGroup)
	kb := itemsKeyboard(items)
	itemData := kb.Rows[0][1].Data
	if len(itemData) > maxCallbackData {
		t.Fatalf("item payload is %d bytes", len(itemData))
	}
	cb, ok = decodeCategory(itemData)
	if ok {
		cb, ok = cb.resolve(tree, longGroup)
	}
	if !ok || cb != (categoryCallback{Action: categoryItem, Value: longItem}) {
		t.Fatalf("long item did not resolve: %+v, %v", cb, ok)
	}

	for _, bad := range []string{"cat_idx;9", "cat_idx;-1", "group_idx;x"} {
		cb, ok := decodeCategory(bad)
		if ok {
			_, ok = cb.resolve(tree, longGroup)
		}
		if ok {
			t.Fatalf("%q should not resolve", bad)
		}
	}
}

func TestMenuKeyboard(t *testing.T) {
	kb := menuKeyboard()
	want := [][]string{{"Outflow", "Inflow"}, {"Category", "Account"}, {"Memo", "Date"}, {"Done"}}
	if len(kb.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(kb.Rows))
	}
	for i, row := range want {
		for j, label := range row {
			if kb.Rows[i][j].Text != label {
				t.Fatalf("row %d col %d: got %q want %q", i, j, kb.Rows[i][j].Text, label)
			}
		}
	}
}

func TestPickerKeyboardCarriesCallbacks(t *testing.T) {
	kb := pickerKeyboard(calendar.View{Year: 2024, Month: 2})
	if !kb.Inline {
		t.Fatal("picker must be inline")
	}
	if kb.Rows[2][3].Text != "1" || kb.Rows[2][3].Data != "CALENDAR;DAY;2024;2;1" {
		t.Fatalf("Feb 1 2024 is a Thursday, got %+v", kb.Rows[2][3])
	}
}

func TestPrompts(t *testing.T) {
	if got := promptFor(core.FieldMemo); got != "What is the memo?" {
		t.Fatalf("unexpected prompt %q", got)
	}
	if got := retryPrompt(core.FieldInflow); got != "Need a number for inflow. Please try again." {
		t.Fatalf("unexpected retry prompt %q", got)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "Idle", AwaitingDateNav: "AwaitingDateNav", State(99): "Unknown"} {
		if s.String() != want {
			t.Fatalf("State(%d) = %q, want %q", int(s), s.String(), want)
		}
	}
}
