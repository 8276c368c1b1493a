package core

import "strings"

// OthersGroup collects every category not placed in a configured group.
const OthersGroup = "Others"

type (
	// CategoryGroup is a named, ordered list of categories as configured.
	CategoryGroup struct {
		Name       string
		Categories []string
	}

	// CategoryTree maps group names to their categories. Every category
	// belongs to exactly one group. Read-only after construction.
	CategoryTree struct {
		groups  []string
		items   map[string][]string
		groupOf map[string]string
	}

	// Accounts is the flat ordered list of account names.
	Accounts []string
)

// NewCategoryTree builds a tree from configured groups and the authoritative
// category list. A category already seen in an earlier group is skipped;
// categories of all that no group claims go to OthersGroup in list order.
// Groups left without categories are dropped.
func NewCategoryTree(groups []CategoryGroup, all []string) CategoryTree {
	t := CategoryTree{
		items:   make(map[string][]string),
		groupOf: make(map[string]string),
	}
	for _, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		for _, c := range g.Categories {
			t.add(name, c)
		}
	}
	for _, c := range all {
		t.add(OthersGroup, c)
	}
	return t
}

func (t *CategoryTree) add(group, category string) {
	category = strings.TrimSpace(category)
	if category == "" {
		return
	}
	if _, seen := t.groupOf[category]; seen {
		return
	}
	if _, exists := t.items[group]; !exists {
		t.groups = append(t.groups, group)
	}
	t.items[group] = append(t.items[group], category)
	t.groupOf[category] = group
}

// Groups returns group names in configuration order; a synthetic
// OthersGroup comes after the configured ones.
func (t CategoryTree) Groups() []string {
	return append([]string(nil), t.groups...)
}

// Items returns the categories of group.
func (t CategoryTree) Items(group string) ([]string, bool) {
	items, ok := t.items[group]
	if !ok {
		return nil, false
	}
	return append([]string(nil), items...), true
}

// GroupOf returns the single group category belongs to.
func (t CategoryTree) GroupOf(category string) (string, bool) {
	g, ok := t.groupOf[category]
	return g, ok
}

// Len returns the number of categories across all groups.
func (t CategoryTree) Len() int {
	return len(t.groupOf)
}

// NewAccounts flattens rows of account cells, skipping blanks.
func NewAccounts(rows [][]string) Accounts {
	var out Accounts
	for _, row := range rows {
		for _, v := range row {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}
