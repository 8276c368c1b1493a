// Package access decides which chat users may talk to the bot.
package access

// Policy admits or rejects a user.
type Policy interface {
	Allow(userID int64) bool
}

// Open admits everyone.
type Open struct{}

func (Open) Allow(int64) bool { return true }

// AllowList admits only the listed user IDs.
type AllowList struct {
	ids map[int64]struct{}
}

// NewAllowList builds an AllowList. An empty list admits nobody.
func NewAllowList(ids ...int64) *AllowList {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &AllowList{ids: m}
}

func (a *AllowList) Allow(userID int64) bool {
	_, ok := a.ids[userID]
	return ok
}

// Len returns how many users are allowed.
func (a *AllowList) Len() int { return len(a.ids) }

// New returns an AllowList over ids when restrict is set, Open otherwise.
func New(restrict bool, ids []int64) Policy {
	if !restrict {
		return Open{}
	}
	return NewAllowList(ids...)
}
