package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"f0oster/userreport/directory"
	"f0oster/userreport/membership"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Directory is the subset of the user-directory API a Builder needs.
type Directory interface {
	GroupMembers(ctx context.Context, group string) ([]directory.Member, error)
	Users(ctx context.Context) ([]directory.UserEntry, error)
	Groups(ctx context.Context) ([]string, error)
}

// Builder assembles a Snapshot from the directory.
type Builder struct {
	dir         Directory
	concurrency int
	now         func() time.Time
	log         *slog.Logger
}

// NewBuilder returns a Builder that fetches at most concurrency group
// membership lists at a time. A concurrency below 1 means one.
func NewBuilder(dir Directory, concurrency int, logger *slog.Logger) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		dir:         dir,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.With("component", "snapshot-builder"),
	}
}

// WithClock replaces the capture clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build queries the directory and returns the current snapshot. It makes
// one request per known group plus two global requests.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	log := b.log.With("build_id", uuid.NewString())
	users := make(map[string]*UserRecord)

	// root group members seed the osg_state of every tracked account
	rootMembers, err := b.dir.GroupMembers(ctx, directory.RootGroup)
	if err != nil {
		return nil, fmt.Errorf("fetch %s members: %w", directory.RootGroup, err)
	}
	for _, m := range rootMembers {
		state := m.State
		userRecord(users, m.UserName).OSGState = &state
	}

	entries, err := b.dir.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	for _, entry := range entries {
		if !strings.EqualFold(entry.Kind, "user") {
			continue
		}
		u, ok := users[entry.Metadata.UnixName]
		if !ok || entry.Metadata.JoinDate == "" {
			continue
		}
		joined, err := membership.ParseTimestamp(entry.Metadata.JoinDate)
		if err != nil {
			return nil, fmt.Errorf("join date of %s: %w", entry.Metadata.UnixName, err)
		}
		u.JoinDate = &joined
	}

	groups, err := b.dir.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch group list: %w", err)
	}

	memberships, err := b.fetchMemberships(ctx, log, groups)
	if err != nil {
		return nil, err
	}
	for i, group := range groups {
		for _, m := range memberships[i] {
			userRecord(users, m.UserName).Groups[group] = m.State
		}
	}

	log.Info("collected users", slog.Int("users", len(users)), slog.Int("groups", len(groups)))

	return &Snapshot{
		Date:  membership.NewTimestamp(b.now()),
		Users: users,
	}, nil
}

// fetchMemberships returns the member lists indexed like groups so the
// merge order never depends on fetch completion order.
func (b *Builder) fetchMemberships(ctx context.Context, log *slog.Logger, groups []string) ([][]directory.Member, error) {
	memberships := make([][]directory.Member, len(groups))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, group := range groups {
		g.Go(func() error {
			members, err := b.dir.GroupMembers(gctx, group)
			if err != nil {
				return fmt.Errorf("fetch %s members: %w", group, err)
			}
			memberships[i] = members
			log.Debug("fetched group members",
				slog.String("group", group),
				slog.Int("members", len(members)),
				slog.Int64("done", done.Add(1)),
				slog.Int("total", len(groups)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return memberships, nil
}

func userRecord(users map[string]*UserRecord, name string) *UserRecord {
	u, ok := users[name]
	if !ok {
		u = &UserRecord{Groups: make(map[string]membership.State)}
		users[name] = u
	}
	return u
}
