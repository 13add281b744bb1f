package diff

import (
	"log/slog"
	"sort"

	"f0oster/userreport/directory"
	"f0oster/userreport/membership"
	"f0oster/userreport/snapshot"
)

// Classifier computes account lifecycle transitions between two snapshots.
// prev must be the older snapshot. None of the methods modify their inputs.
type Classifier struct {
	exclude GroupSet
	log     *slog.Logger
}

// NewClassifier returns a Classifier that never counts the groups in
// exclude as non-training project groups. A nil exclude means
// DefaultExclude.
func NewClassifier(exclude GroupSet, logger *slog.Logger) *Classifier {
	if exclude == nil {
		exclude = DefaultExclude()
	}
	return &Classifier{
		exclude: exclude.Union(nil),
		log:     logger.With("component", "classifier"),
	}
}

// NewAccountRequests lists users whose join date falls in
// (prev.Date, curr.Date]. Users without a join date are skipped.
func (c *Classifier) NewAccountRequests(prev, curr *snapshot.Snapshot) []string {
	start, end := prev.Date.Time, curr.Date.Time

	accounts := []string{}
	for name, user := range curr.Users {
		if user.JoinDate == nil {
			continue
		}
		joined := user.JoinDate.Time
		if joined.After(start) && !joined.After(end) {
			accounts = append(accounts, name)
		}
	}
	sort.Strings(accounts)

	c.log.Info("found new account requests",
		slog.Int("count", len(accounts)),
		slog.String("start", prev.Date.String()),
		slog.String("end", curr.Date.String()),
	)
	return accounts
}

// NewAccountsAccepted lists users whose root group state moved from
// pending in prev to active in curr. A user without a root group entry in
// either snapshot is logged and skipped; a prev user absent from curr is an
// error.
func (c *Classifier) NewAccountsAccepted(prev, curr *snapshot.Snapshot) ([]string, error) {
	accounts := []string{}
	for _, name := range sortedUsers(prev) {
		before, ok := prev.Users[name].GroupState(directory.RootGroup)
		if !ok {
			c.log.Warn("user does not have the root group", slog.String("user", name), slog.String("group", directory.RootGroup))
			continue
		}
		if before != membership.Pending {
			continue
		}

		current, ok := curr.Users[name]
		if !ok {
			return nil, &MissingUserError{User: name, Snapshot: "current"}
		}
		after, ok := current.GroupState(directory.RootGroup)
		if !ok {
			c.log.Warn("user lost the root group", slog.String("user", name), slog.String("group", directory.RootGroup))
			continue
		}
		if after == membership.Active {
			accounts = append(accounts, name)
		}
	}

	c.log.Info("found new accounts accepted",
		slog.Int("count", len(accounts)),
		slog.String("start", prev.Date.String()),
		slog.String("end", curr.Date.String()),
	)
	return accounts, nil
}

// InTrainingGroups keeps the users that are pending or active in at least
// one training group in curr. Input order is preserved.
func (c *Classifier) InTrainingGroups(users []string, curr *snapshot.Snapshot, training GroupSet) ([]string, error) {
	accounts, err := filterUsers(users, curr, training.Contains)
	if err != nil {
		return nil, err
	}

	c.log.Info("found users added to a training group", slog.Int("count", len(accounts)), slog.Int("candidates", len(users)))
	return accounts, nil
}

// InNonTrainingGroups keeps the users that are pending or active in at
// least one group that is neither excluded nor a training group.
func (c *Classifier) InNonTrainingGroups(users []string, curr *snapshot.Snapshot, training GroupSet) ([]string, error) {
	excluded := c.exclude.Union(training)
	accounts, err := filterUsers(users, curr, func(group string) bool {
		return !excluded.Contains(group)
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("found users added to a non-training group",
		slog.Int("count", len(accounts)),
		slog.Int("candidates", len(users)),
		slog.Any("excluded", excluded.Sorted()),
	)
	return accounts, nil
}

// Classify runs every computation for one pair of snapshots.
func (c *Classifier) Classify(prev, curr *snapshot.Snapshot, training GroupSet) (*Result, error) {
	var (
		res Result
		err error
	)

	res.Requested = c.NewAccountRequests(prev, curr)
	if res.RequestedTraining, err = c.InTrainingGroups(res.Requested, curr, training); err != nil {
		return nil, err
	}
	if res.RequestedNonTraining, err = c.InNonTrainingGroups(res.Requested, curr, training); err != nil {
		return nil, err
	}

	if res.Accepted, err = c.NewAccountsAccepted(prev, curr); err != nil {
		return nil, err
	}
	if res.AcceptedTraining, err = c.InTrainingGroups(res.Accepted, curr, training); err != nil {
		return nil, err
	}
	if res.AcceptedNonTraining, err = c.InNonTrainingGroups(res.Accepted, curr, training); err != nil {
		return nil, err
	}

	return &res, nil
}

// filterUsers keeps users with at least one added membership in a group
// accepted by match.
func filterUsers(users []string, curr *snapshot.Snapshot, match func(group string) bool) ([]string, error) {
	accounts := []string{}
	for _, name := range users {
		user, ok := curr.Users[name]
		if !ok {
			return nil, &MissingUserError{User: name, Snapshot: "current"}
		}
		for group, state := range user.Groups {
			if state.Added() && match(group) {
				accounts = append(accounts, name)
				break
			}
		}
	}
	return accounts, nil
}

func sortedUsers(snap *snapshot.Snapshot) []string {
	names := make([]string, 0, len(snap.Users))
	for name := range snap.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
