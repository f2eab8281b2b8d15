package bot

import "errors"

var ErrAccessDenied = errors.New("access denied")

// AccessGate admits events from a fixed set of user ids. The set is copied on
// construction and never changes afterwards.
type AccessGate struct {
	allowed map[int64]struct{}
}

func NewAccessGate(userIDs []int64) *AccessGate {
	allowed := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}
	return &AccessGate{allowed: allowed}
}

// Check returns ErrAccessDenied for events without a sender or from an unknown sender
func (g *AccessGate) Check(ev Event) error {
	if !ev.HasUser {
		return ErrAccessDenied
	}
	if _, ok := g.allowed[ev.UserID]; !ok {
		return ErrAccessDenied
	}
	return nil
}
