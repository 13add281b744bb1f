package directory

import "f0oster/userreport/membership"

// RootGroup is the top-level group every tracked account belongs to.
const RootGroup = "root.osg"

// Member is one row of a group's membership list.
type Member struct {
	UserName string           `json:"user_name"`
	State    membership.State `json:"state"`
}

// UserEntry is one record of the user directory. Kind distinguishes
// people from service identities and other entry types.
type UserEntry struct {
	Kind     string       `json:"kind"`
	Metadata UserMetadata `json:"metadata"`
}

// UserMetadata keeps JoinDate in its wire form. Entries that are not
// tracked users may carry empty or foreign values, so it is parsed only
// once an entry is known to matter.
type UserMetadata struct {
	UnixName string `json:"unix_name"`
	JoinDate string `json:"join_date,omitempty"`
}
