package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"f0oster/userreport/membership"

	"github.com/go-ldap/ldap/v3"
)

// LDAP generalized time as returned for createTimestamp.
const generalizedTimeLayout = "20060102150405Z"

type LDAPConfig struct {
	URL         string
	BindDN      string
	Password    string
	GroupBaseDN string
	UserBaseDN  string
	// MemberAttr lists active members, PendingAttr (optional) lists
	// members awaiting approval.
	MemberAttr  string
	PendingAttr string
	PageSize    uint32
}

type ldapSearcher interface {
	SearchWithPaging(searchRequest *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
}

// LDAPDirectory serves the same queries as APIClient from an LDAP tree
// where groups are groupOfNames entries and people are posixAccounts.
type LDAPDirectory struct {
	cfg    LDAPConfig
	search ldapSearcher
	conn   *ldap.Conn
	log    *slog.Logger
}

// DialLDAP connects and binds to the directory server.
func DialLDAP(cfg LDAPConfig, logger *slog.Logger) (*LDAPDirectory, error) {
	conn, err := ldap.DialURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to LDAP server %s: %w", cfg.URL, err)
	}

	// TODO: LDAPS and SASL binds
	if err := conn.Bind(cfg.BindDN, cfg.Password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind to LDAP server as %s: %w", cfg.BindDN, err)
	}

	d := NewLDAPDirectory(conn, cfg, logger)
	d.conn = conn
	d.log.Info("bound to LDAP server", slog.String("url", cfg.URL), slog.String("bind_dn", cfg.BindDN))
	return d, nil
}

func NewLDAPDirectory(search ldapSearcher, cfg LDAPConfig, logger *slog.Logger) *LDAPDirectory {
	if cfg.MemberAttr == "" {
		cfg.MemberAttr = "member"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 500
	}
	return &LDAPDirectory{
		cfg:    cfg,
		search: search,
		log:    logger.With("adapter", "directory-ldap"),
	}
}

func (d *LDAPDirectory) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

func (d *LDAPDirectory) Groups(ctx context.Context) ([]string, error) {
	entries, err := d.query(ctx, d.cfg.GroupBaseDN, AllGroupObjects, []string{"cn"})
	if err != nil {
		return nil, fmt.Errorf("group list: %w", err)
	}

	groups := make([]string, 0, len(entries))
	for _, entry := range entries {
		if cn := entry.GetAttributeValue("cn"); cn != "" {
			groups = append(groups, cn)
		}
	}
	return groups, nil
}

func (d *LDAPDirectory) GroupMembers(ctx context.Context, group string) ([]Member, error) {
	attrs := []string{d.cfg.MemberAttr}
	if d.cfg.PendingAttr != "" {
		attrs = append(attrs, d.cfg.PendingAttr)
	}

	filter := And(rawFilter(AllGroupObjects), Eq("cn", group)).String()
	entries, err := d.query(ctx, d.cfg.GroupBaseDN, filter, attrs)
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", group, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("members of %s: group not found under %s", group, d.cfg.GroupBaseDN)
	}

	return membersFromEntry(entries[0], d.cfg.MemberAttr, d.cfg.PendingAttr), nil
}

func (d *LDAPDirectory) Users(ctx context.Context) ([]UserEntry, error) {
	entries, err := d.query(ctx, d.cfg.UserBaseDN, userFilter.String(), []string{"uid", "createTimestamp"})
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}

	users := make([]UserEntry, 0, len(entries))
	for _, entry := range entries {
		uid := entry.GetAttributeValue("uid")
		if uid == "" {
			d.log.Warn("skipping posixAccount without uid", slog.String("dn", entry.DN))
			continue
		}
		user := UserEntry{Kind: "user", Metadata: UserMetadata{UnixName: uid}}

		if raw := entry.GetAttributeValue("createTimestamp"); raw != "" {
			created, err := time.Parse(generalizedTimeLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("createTimestamp of %s: %w", entry.DN, err)
			}
			user.Metadata.JoinDate = membership.NewTimestamp(created).String()
		}
		users = append(users, user)
	}
	return users, nil
}

func (d *LDAPDirectory) query(ctx context.Context, baseDN, filter string, attrs []string) ([]*ldap.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attrs,
		nil,
	)

	d.log.DebugContext(ctx, "ldap search", slog.String("base", baseDN), slog.String("filter", filter))

	result, err := d.search.SearchWithPaging(req, d.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	return result.Entries, nil
}

// membersFromEntry lists pending members first so that a user present in
// both attributes ends up active.
func membersFromEntry(entry *ldap.Entry, memberAttr, pendingAttr string) []Member {
	var members []Member
	index := make(map[string]int)

	add := func(values []string, state membership.State) {
		for _, v := range values {
			name := memberName(v)
			if name == "" {
				continue
			}
			if i, ok := index[name]; ok {
				members[i].State = state
				continue
			}
			index[name] = len(members)
			members = append(members, Member{UserName: name, State: state})
		}
	}

	if pendingAttr != "" {
		add(entry.GetAttributeValues(pendingAttr), membership.Pending)
	}
	add(entry.GetAttributeValues(memberAttr), membership.Active)
	return members
}

// memberName accepts either a full DN ("uid=jim,ou=people,...") or a bare
// memberUid value and returns the user name.
func memberName(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "=") {
		return value
	}
	dn, err := ldap.ParseDN(value)
	if err != nil || len(dn.RDNs) == 0 || len(dn.RDNs[0].Attributes) == 0 {
		return ""
	}
	return dn.RDNs[0].Attributes[0].Value
}
