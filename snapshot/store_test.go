package snapshot_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"f0oster/userreport/membership"
	"f0oster/userreport/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statePtr(s membership.State) *membership.State { return &s }

func mustTimestamp(t *testing.T, s string) membership.Timestamp {
	t.Helper()
	ts, err := membership.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func sampleSnapshot(t *testing.T, date string) *snapshot.Snapshot {
	joined := mustTimestamp(t, "2021-Jan-01 04:46:25.868712 UTC")
	return &snapshot.Snapshot{
		Date: mustTimestamp(t, date),
		Users: map[string]*snapshot.UserRecord{
			"pam_beesly": {
				OSGState: statePtr(membership.Active),
				JoinDate: &joined,
				Groups: map[string]membership.State{
					"root.osg":              membership.Active,
					"root.osg.non_training": membership.Active,
				},
			},
			"toby": {
				Groups: map[string]membership.State{"root.osg.hr": membership.Pending},
			},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshots"), newTestLogger())
	snap := sampleSnapshot(t, "2021-Jan-07 13:14:15.000123 UTC")

	path, err := store.Save(snap)
	require.NoError(t, err)
	assert.Equal(t, "20210107_snapshot.json", filepath.Base(path))

	loaded, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Date.Equal(snap.Date.Time))
	assert.Equal(t, snap.Users, loaded.Users)
	assert.Nil(t, loaded.Users["toby"].OSGState)
	assert.Nil(t, loaded.Users["toby"].JoinDate)
}

func TestStore_SaveWireFormat(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), newTestLogger())
	path, err := store.Save(sampleSnapshot(t, "2021-Jan-07 00:00:00.000000 UTC"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"date": "2021-Jan-07 00:00:00.000000 UTC",
		"users": {
			"pam_beesly": {
				"osg_state": "active",
				"join_date": "2021-Jan-01 04:46:25.868712 UTC",
				"groups": {"root.osg": "active", "root.osg.non_training": "active"}
			},
			"toby": {"groups": {"root.osg.hr": "pending"}}
		}
	}`, string(data))
}

func TestStore_SameDayOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(dir, newTestLogger())

	_, err := store.Save(sampleSnapshot(t, "2021-Jan-07 01:00:00.000000 UTC"))
	require.NoError(t, err)
	_, err = store.Save(sampleSnapshot(t, "2021-Jan-07 23:00:00.000000 UTC"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 23, latest.Date.Hour())
}

func TestStore_LatestPicksMaxEmbeddedDate(t *testing.T) {
	dir := t.TempDir()
	// file names disagree with embedded dates on purpose
	writeFile(t, dir, "20210301_snapshot.json", `{"date":"2021-Jan-01 00:00:01.000000 UTC","users":{}}`)
	writeFile(t, dir, "20210101_snapshot.json", `{"date":"2021-Mar-01 00:00:00.000000 UTC","users":{}}`)
	writeFile(t, dir, "notes.json", `not json`)

	latest, err := snapshot.NewStore(dir, newTestLogger()).Latest()
	require.NoError(t, err)
	assert.Equal(t, time.March, latest.Date.Month())
}

func TestStore_LatestEmpty(t *testing.T) {
	_, err := snapshot.NewStore(t.TempDir(), newTestLogger()).Latest()
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)

	_, err = snapshot.NewStore(filepath.Join(t.TempDir(), "missing"), newTestLogger()).Latest()
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)
}

func TestStore_LatestAbortsOnMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20210101_snapshot.json", `{"date":"2021-Jan-01 00:00:01.000000 UTC","users":{}}`)
	writeFile(t, dir, "20210102_snapshot.json", `{"date":"yesterday","users":{}}`)

	_, err := snapshot.NewStore(dir, newTestLogger()).Latest()
	require.Error(t, err)
	assert.NotErrorIs(t, err, snapshot.ErrNoSnapshot)
	assert.Contains(t, err.Error(), "20210102_snapshot.json")
}

func TestLoad_RejectsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing_date.json":  `{"users":{}}`,
		"missing_users.json": `{"date":"2021-Jan-01 00:00:01.000000 UTC"}`,
		"bad_state.json":     `{"date":"2021-Jan-01 00:00:01.000000 UTC","users":{"x":{"groups":{"root.osg":"zombie"}}}}`,
		"null_user.json":     `{"date":"2021-Jan-01 00:00:01.000000 UTC","users":{"x":null}}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			writeFile(t, dir, name, content)
			_, err := snapshot.Load(filepath.Join(dir, name))
			assert.Error(t, err)
		})
	}
}
