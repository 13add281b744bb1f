package directory

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filter renders an RFC 4515 search filter.
type Filter interface {
	String() string
}

type rawFilter string

func (f rawFilter) String() string {
	return string(f)
}

type andFilter struct {
	parts []Filter
}

func And(filters ...Filter) Filter {
	return andFilter{parts: filters}
}

func (f andFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(&" + strings.Join(parts, "") + ")"
}

// Eq matches attr against value; value is escaped.
func Eq(attr, value string) Filter {
	return rawFilter("(" + attr + "=" + ldap.EscapeFilter(value) + ")")
}

func Present(attr string) Filter {
	return rawFilter("(" + attr + "=*)")
}

const (
	AllGroupObjects = "(objectClass=groupOfNames)"
	AllUserObjects  = "(objectClass=posixAccount)"
)

// userFilter selects accounts that can be matched to group members.
var userFilter = And(rawFilter(AllUserObjects), Present("uid"))
