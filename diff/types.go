package diff

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingUser marks a user referenced by one snapshot but absent from
// the other, typically an account deleted between captures.
var ErrMissingUser = errors.New("user missing from snapshot")

type MissingUserError struct {
	User string
	// Snapshot is "previous" or "current"
	Snapshot string
}

func (e *MissingUserError) Error() string {
	return fmt.Sprintf("user %s missing from %s snapshot", e.User, e.Snapshot)
}

func (e *MissingUserError) Unwrap() error {
	return ErrMissingUser
}

// GroupSet is a set of group names.
type GroupSet map[string]struct{}

func NewGroupSet(names ...string) GroupSet {
	set := make(GroupSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// DefaultExclude holds the groups every account belongs to, which never
// count as project groups.
func DefaultExclude() GroupSet {
	return NewGroupSet("root", "root.osg")
}

func (s GroupSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns a new set; neither operand is modified.
func (s GroupSet) Union(other GroupSet) GroupSet {
	out := make(GroupSet, len(s)+len(other))
	for name := range s {
		out[name] = struct{}{}
	}
	for name := range other {
		out[name] = struct{}{}
	}
	return out
}

// Sorted returns the names in lexicographic order.
func (s GroupSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts is the numeric summary a report is rendered from.
type Counts struct {
	Requested            int `json:"requested"`
	RequestedTraining    int `json:"requested_training"`
	RequestedNonTraining int `json:"requested_non_training"`
	Accepted             int `json:"accepted"`
	AcceptedTraining     int `json:"accepted_training"`
	AcceptedNonTraining  int `json:"accepted_non_training"`
}

// Result holds every user list computed for one pair of snapshots.
type Result struct {
	Requested            []string `json:"requested"`
	RequestedTraining    []string `json:"requested_training"`
	RequestedNonTraining []string `json:"requested_non_training"`
	Accepted             []string `json:"accepted"`
	AcceptedTraining     []string `json:"accepted_training"`
	AcceptedNonTraining  []string `json:"accepted_non_training"`
}

func (r *Result) Counts() Counts {
	return Counts{
		Requested:            len(r.Requested),
		RequestedTraining:    len(r.RequestedTraining),
		RequestedNonTraining: len(r.RequestedNonTraining),
		Accepted:             len(r.Accepted),
		AcceptedTraining:     len(r.AcceptedTraining),
		AcceptedNonTraining:  len(r.AcceptedNonTraining),
	}
}
