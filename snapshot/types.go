package snapshot

import (
	"f0oster/userreport/membership"
)

// Snapshot is a point-in-time capture of every known user's directory
// state and group memberships. It is never mutated after Build returns.
type Snapshot struct {
	// Date is the capture time; snapshots are ordered by it
	Date membership.Timestamp `json:"date"`

	// Users is keyed by unix user name
	Users map[string]*UserRecord `json:"users"`
}

// UserRecord holds one user's state. OSGState and JoinDate are absent for
// users seen only as members of groups other than the root group.
type UserRecord struct {
	OSGState *membership.State           `json:"osg_state,omitempty"`
	JoinDate *membership.Timestamp       `json:"join_date,omitempty"`
	Groups   map[string]membership.State `json:"groups"`
}

// GroupState returns the user's state in group and whether the user is
// listed there at all.
func (u *UserRecord) GroupState(group string) (membership.State, bool) {
	state, ok := u.Groups[group]
	return state, ok
}
