package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"f0oster/userreport/diff"
	"f0oster/userreport/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prevSnapshotJSON = `{
 "date": "2021-Jan-01 00:00:01.000000 UTC",
 "users": {
  "jim_halpert": {
   "osg_state": "pending",
   "join_date": "2021-Jan-01 00:00:00.000000 UTC",
   "groups": {"root.osg": "pending", "root.osg.training2021": "pending"}
  }
 }
}`

const currSnapshotJSON = `{
 "date": "2021-Jan-08 00:00:01.000000 UTC",
 "users": {
  "jim_halpert": {
   "osg_state": "active",
   "join_date": "2021-Jan-01 00:00:00.000000 UTC",
   "groups": {"root.osg": "active", "root.osg.training2021": "active"}
  },
  "pam_beesly": {
   "osg_state": "pending",
   "join_date": "2021-Jan-05 10:00:00.000000 UTC",
   "groups": {"root.osg": "pending", "root.osg.non_training": "pending"}
  }
 }
}`

// setupEnv points every setting at files under a temp dir and returns it.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Setenv("DIRECTORY_BACKEND", "api")
	t.Setenv("DIRECTORY_API_URL", "http://127.0.0.1:1/v1")
	t.Setenv("DIRECTORY_TOKEN_FILE", write("token", "secret-token\n"))
	t.Setenv("SNAPSHOT_DIR", filepath.Join(dir, "snapshots"))
	t.Setenv("TRAINING_GROUPS_FILE", write("training_groups.json", `["root.osg.training2021"]`))
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SMTP_CREDENTIALS_FILE", write("credentials", "hunter2"))
	t.Setenv("MAIL_FROM", "reports@example.org")
	t.Setenv("MAIL_RECIPIENTS", "ops@example.org")
	t.Setenv("MAIL_SUBJECT_PREFIX", "OSG Account Report")
	t.Setenv("ARCHIVE_DSN", "")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "text")

	write("prev.json", prevSnapshotJSON)
	write("curr.json", currSnapshotJSON)
	return dir
}

func TestDiffCommand(t *testing.T) {
	dir := setupEnv(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "diff", filepath.Join(dir, "prev.json"), filepath.Join(dir, "curr.json")}, &stdout, &stderr, "test")
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "OSG Account Report: 2021-01-01 to 2021-01-08")
	assert.Contains(t, out, "(7 days)")
	assert.Contains(t, out, "New Accounts Requested: 1")
	assert.Contains(t, out, "New Accounts Accepted: 1")
}

func TestDiffCommand_JSON(t *testing.T) {
	dir := setupEnv(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "diff", "--json", filepath.Join(dir, "prev.json"), filepath.Join(dir, "curr.json")}, &stdout, &stderr, "test")
	require.NoError(t, err, stderr.String())

	var result diff.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, []string{"pam_beesly"}, result.Requested)
	assert.Equal(t, []string{"pam_beesly"}, result.RequestedNonTraining)
	assert.Empty(t, result.RequestedTraining)
	assert.Equal(t, []string{"jim_halpert"}, result.Accepted)
	assert.Equal(t, []string{"jim_halpert"}, result.AcceptedTraining)
	assert.Empty(t, result.AcceptedNonTraining)
}

func TestDiffCommand_NoDirectorySettings(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("DIRECTORY_API_URL", "")
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "diff", filepath.Join(dir, "prev.json"), filepath.Join(dir, "curr.json")}, &stdout, &stderr, "test")
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stdout.String(), "New Accounts Accepted: 1")
}

func TestDiffCommand_RequiresTwoFiles(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "diff", "only-one.json"}, &stdout, &stderr, "test")
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestDiffCommand_MissingTrainingGroups(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("TRAINING_GROUPS_FILE", filepath.Join(dir, "absent.json"))
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "diff", filepath.Join(dir, "prev.json"), filepath.Join(dir, "curr.json")}, &stdout, &stderr, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training groups")
	assert.Empty(t, stdout.String())
}

func TestRunCommand_NoPreviousSnapshot(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", ""}, &stdout, &stderr, "test")
	require.ErrorIs(t, err, snapshot.ErrNoSnapshot)
	assert.Contains(t, stderr.String(), "no previous snapshot found")
	assert.NotContains(t, stderr.String(), "Error:")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("DIRECTORY_BACKEND", "carrier-pigeon")
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "run"}, &stdout, &stderr, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIRECTORY_BACKEND")
}

func TestHistoryCommand_RequiresArchive(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env", "", "history"}, &stdout, &stderr, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_DSN")
}
