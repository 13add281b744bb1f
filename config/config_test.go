package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"f0oster/userreport/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnvConfig_FromFile(t *testing.T) {
	// godotenv never overrides variables that are already set, so make sure
	// these are unset for the duration of the test.
	for _, key := range []string{"DIRECTORY_API_URL", "MAIL_RECIPIENTS", "DIRECTORY_FETCH_CONCURRENCY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := writeFile(t, "settings.env", `
DIRECTORY_API_URL=https://directory.example.org/v1
DIRECTORY_FETCH_CONCURRENCY=4
MAIL_RECIPIENTS=a@example.org,b@example.org
`)

	base := t.TempDir()
	cfg, err := config.LoadEnvConfig(path, config.WithBaseDir(base))
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Directory.Backend)
	assert.Equal(t, "https://directory.example.org/v1", cfg.Directory.BaseURL)
	assert.Equal(t, 4, cfg.Directory.FetchConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Directory.Timeout)
	assert.Equal(t, filepath.Join(base, "snapshots"), cfg.Snapshot.Dir)
	assert.Equal(t, filepath.Join(base, "training_groups.json"), cfg.Snapshot.TrainingGroupsFile)
	assert.Equal(t, filepath.Join(base, "token_DO_NOT_VERSION"), cfg.Directory.TokenFile)
	assert.Equal(t, filepath.Join(base, "email_credentials_DO_NOT_VERSION"), cfg.Mail.CredentialsFile)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, cfg.Mail.Recipients)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Empty(t, cfg.Archive.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvConfig_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", "ldap")
	t.Setenv("LDAP_URL", "ldap://ldap.example.org:389")
	t.Setenv("LDAP_GROUP_BASEDN", "ou=groups,dc=example,dc=org")
	t.Setenv("LDAP_USER_BASEDN", "ou=people,dc=example,dc=org")

	cfg, err := config.LoadEnvConfig(filepath.Join(t.TempDir(), "settings.env"), config.WithBaseDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "ldap", cfg.Directory.Backend)
	assert.Equal(t, "member", cfg.Directory.LDAPMemberAttr)
	assert.Equal(t, uint32(500), cfg.Directory.LDAPPageSize)
}

func TestLoadEnvConfig_RelativePathsFollowExecutable(t *testing.T) {
	t.Setenv("DIRECTORY_API_URL", "https://directory.example.org/v1")
	t.Setenv("SNAPSHOT_DIR", "")
	os.Unsetenv("SNAPSHOT_DIR")
	absolute := filepath.Join(t.TempDir(), "groups.json")
	t.Setenv("TRAINING_GROUPS_FILE", absolute)

	exe, err := os.Executable()
	require.NoError(t, err)

	cfg, err := config.LoadEnvConfig("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(exe), "snapshots"), cfg.Snapshot.Dir)
	assert.Equal(t, absolute, cfg.Snapshot.TrainingGroupsFile)
}

func TestLoadEnvConfig_SettingsFileRelativeToBaseDir(t *testing.T) {
	t.Setenv("DIRECTORY_API_URL", "")
	os.Unsetenv("DIRECTORY_API_URL")

	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "settings.env"), []byte("DIRECTORY_API_URL=https://directory.example.org/v1\n"), 0o600))

	cfg, err := config.LoadEnvConfig("settings.env", config.WithBaseDir(base))
	require.NoError(t, err)
	assert.Equal(t, "https://directory.example.org/v1", cfg.Directory.BaseURL)
}

func TestLoadEnvConfig_WithoutDirectory(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", "api")
	t.Setenv("DIRECTORY_API_URL", "")

	_, err := config.LoadEnvConfig("", config.WithBaseDir(t.TempDir()))
	require.ErrorContains(t, err, "DIRECTORY_API_URL")

	cfg, err := config.LoadEnvConfig("", config.WithBaseDir(t.TempDir()), config.WithoutDirectory())
	require.NoError(t, err)
	assert.Empty(t, cfg.Directory.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := config.ReportConfiguration{
		Directory: config.DirectoryConfig{Backend: "api", BaseURL: "http://x", FetchConcurrency: 1},
		Snapshot:  config.SnapshotConfig{Dir: "snapshots"},
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *config.ReportConfiguration){
		"missing api url":    func(c *config.ReportConfiguration) { c.Directory.BaseURL = "" },
		"unknown backend":    func(c *config.ReportConfiguration) { c.Directory.Backend = "soap" },
		"ldap without url":   func(c *config.ReportConfiguration) { c.Directory.Backend = "ldap" },
		"zero concurrency":   func(c *config.ReportConfiguration) { c.Directory.FetchConcurrency = 0 },
		"empty snapshot dir": func(c *config.ReportConfiguration) { c.Snapshot.Dir = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadTrainingGroups(t *testing.T) {
	groups, err := config.LoadTrainingGroups(writeFile(t, "training_groups.json", `["root.osg.training2021","root.osg.ospool-school"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"root.osg.training2021", "root.osg.ospool-school"}, groups)
}

func TestLoadTrainingGroups_Errors(t *testing.T) {
	_, err := config.LoadTrainingGroups(filepath.Join(t.TempDir(), "training_groups.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.LoadTrainingGroups(writeFile(t, "training_groups.json", `{"root.osg.training2021": true}`))
	assert.ErrorContains(t, err, "possible formatting error")
}
