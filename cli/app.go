package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"f0oster/userreport/config"
	"f0oster/userreport/database"
	"f0oster/userreport/diff"
	"f0oster/userreport/directory"
	"f0oster/userreport/logging"
	"f0oster/userreport/snapshot"
)

// app holds what every subcommand loads before doing its work.
type app struct {
	envFile string

	cfg *config.ReportConfiguration
	log *slog.Logger
}

func (a *app) load(stderr io.Writer, opts ...config.LoadOption) error {
	cfg, err := config.LoadEnvConfig(a.envFile, opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log, stderr)
	return nil
}

func (a *app) trainingGroups() (diff.GroupSet, error) {
	groups, err := config.LoadTrainingGroups(a.cfg.Snapshot.TrainingGroupsFile)
	if err != nil {
		return nil, err
	}
	a.log.Debug("loaded training groups", slog.Int("count", len(groups)))
	return diff.NewGroupSet(groups...), nil
}

// directory opens the configured backend. The returned func releases it.
func (a *app) directory() (snapshot.Directory, func(), error) {
	dc := a.cfg.Directory
	switch strings.ToLower(dc.Backend) {
	case "ldap":
		d, err := directory.DialLDAP(directory.LDAPConfig{
			URL:         dc.LDAPURL,
			BindDN:      dc.LDAPBindDN,
			Password:    dc.LDAPPassword,
			GroupBaseDN: dc.LDAPGroupBaseDN,
			UserBaseDN:  dc.LDAPUserBaseDN,
			MemberAttr:  dc.LDAPMemberAttr,
			PendingAttr: dc.LDAPPendingAttr,
			PageSize:    dc.LDAPPageSize,
		}, a.log)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		c, err := directory.NewAPIClient(dc.BaseURL, dc.TokenFile, dc.Timeout, a.log)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
}

// archive connects to and migrates the report archive. It returns a nil
// client when no ARCHIVE_DSN is configured.
func (a *app) archive(ctx context.Context) (*database.DBClient, func(), error) {
	if a.cfg.Archive.DSN == "" {
		return nil, func() {}, nil
	}

	pool, err := database.Connect(ctx, a.cfg.Archive.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to archive: %w", err)
	}
	if err := database.Migrate(ctx, pool, a.log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate archive: %w", err)
	}
	return database.NewDBClient(pool, a.log), pool.Close, nil
}

func (a *app) store() *snapshot.Store {
	return snapshot.NewStore(a.cfg.Snapshot.Dir, a.log)
}

func (a *app) classifier() *diff.Classifier {
	return diff.NewClassifier(diff.DefaultExclude(), a.log)
}
