package membership

import (
	"fmt"
)

// State is a user's standing within a single group.
// The zero value is not a valid state and never survives decoding.
type State uint8

const (
	Nonmember State = iota + 1
	Pending
	Active
	Admin
	Disabled
)

var stateNames = map[State]string{
	Nonmember: "nonmember",
	Pending:   "pending",
	Active:    "active",
	Admin:     "admin",
	Disabled:  "disabled",
}

// ParseState maps the directory's string form onto a State.
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unrecognized membership state %q", s)
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Valid reports whether s is one of the five known states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// Added reports whether the state counts as "added to a group".
func (s State) Added() bool {
	return s == Pending || s == Active
}

func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("cannot marshal invalid membership state %d", uint8(s))
	}
	return []byte(name), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
