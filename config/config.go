package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type ReportConfiguration struct {
	Directory DirectoryConfig
	Snapshot  SnapshotConfig
	Mail      MailConfig
	Archive   ArchiveConfig
	Log       LogConfig
}

// DirectoryConfig selects and configures the user-directory backend.
// Backend is "api" or "ldap".
type DirectoryConfig struct {
	Backend          string        `env:"DIRECTORY_BACKEND"           env-default:"api"`
	BaseURL          string        `env:"DIRECTORY_API_URL"`
	TokenFile        string        `env:"DIRECTORY_TOKEN_FILE"        env-default:"token_DO_NOT_VERSION"`
	Timeout          time.Duration `env:"DIRECTORY_TIMEOUT"           env-default:"30s"`
	FetchConcurrency int           `env:"DIRECTORY_FETCH_CONCURRENCY" env-default:"1"`

	LDAPURL         string `env:"LDAP_URL"`
	LDAPBindDN      string `env:"LDAP_BIND_DN"`
	LDAPPassword    string `env:"LDAP_PASSWORD"`
	LDAPGroupBaseDN string `env:"LDAP_GROUP_BASEDN"`
	LDAPUserBaseDN  string `env:"LDAP_USER_BASEDN"`
	LDAPMemberAttr  string `env:"LDAP_MEMBER_ATTR"  env-default:"member"`
	LDAPPendingAttr string `env:"LDAP_PENDING_ATTR"`
	LDAPPageSize    uint32 `env:"LDAP_PAGESIZE"     env-default:"500"`
}

type SnapshotConfig struct {
	Dir                string `env:"SNAPSHOT_DIR"         env-default:"snapshots"`
	TrainingGroupsFile string `env:"TRAINING_GROUPS_FILE" env-default:"training_groups.json"`
}

type MailConfig struct {
	Host            string   `env:"SMTP_HOST"             env-default:"smtp.gmail.com"`
	Port            int      `env:"SMTP_PORT"             env-default:"587"`
	Username        string   `env:"SMTP_USERNAME"`
	CredentialsFile string   `env:"SMTP_CREDENTIALS_FILE" env-default:"email_credentials_DO_NOT_VERSION"`
	From            string   `env:"MAIL_FROM"`
	Recipients      []string `env:"MAIL_RECIPIENTS"       env-separator:","`
	SubjectPrefix   string   `env:"MAIL_SUBJECT_PREFIX"   env-default:"OSG Account Report"`
}

// ArchiveConfig enables the Postgres report archive when DSN is set.
type ArchiveConfig struct {
	DSN string `env:"ARCHIVE_DSN"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

type loadOptions struct {
	baseDir       string
	skipDirectory bool
}

type LoadOption func(*loadOptions)

// WithBaseDir resolves relative paths against dir instead of the
// executable's directory.
func WithBaseDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.baseDir = dir
	}
}

// WithoutDirectory skips validation of the directory backend settings, for
// commands that never contact the directory.
func WithoutDirectory() LoadOption {
	return func(o *loadOptions) {
		o.skipDirectory = true
	}
}

// LoadEnvConfig loads configName into the process environment (a missing
// file is not an error) and reads the configuration from the environment.
// Relative paths, configName included, are taken relative to the directory
// holding the executable so scheduled runs do not depend on the working
// directory. Absolute paths are kept as given.
func LoadEnvConfig(configName string, opts ...LoadOption) (*ReportConfiguration, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseDir == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, fmt.Errorf("config: locate executable: %w", err)
		}
		o.baseDir = dir
	}

	if configName != "" {
		configName = resolvePath(o.baseDir, configName)
		err := godotenv.Load(configName)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", configName, err)
		}
	}

	var cfg ReportConfiguration
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	cfg.resolvePaths(o.baseDir)

	validate := cfg.Validate
	if o.skipDirectory {
		validate = cfg.ValidateLocal
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (c *ReportConfiguration) resolvePaths(base string) {
	c.Directory.TokenFile = resolvePath(base, c.Directory.TokenFile)
	c.Snapshot.Dir = resolvePath(base, c.Snapshot.Dir)
	c.Snapshot.TrainingGroupsFile = resolvePath(base, c.Snapshot.TrainingGroupsFile)
	c.Mail.CredentialsFile = resolvePath(base, c.Mail.CredentialsFile)
}

// Validate checks the settings every command needs. Mail settings are
// checked by the mailer when it is constructed.
func (c *ReportConfiguration) Validate() error {
	var errs []error

	switch strings.ToLower(c.Directory.Backend) {
	case "api":
		if c.Directory.BaseURL == "" {
			errs = append(errs, errors.New("DIRECTORY_API_URL is required for the api backend"))
		}
	case "ldap":
		if c.Directory.LDAPURL == "" {
			errs = append(errs, errors.New("LDAP_URL is required for the ldap backend"))
		}
		if c.Directory.LDAPGroupBaseDN == "" || c.Directory.LDAPUserBaseDN == "" {
			errs = append(errs, errors.New("LDAP_GROUP_BASEDN and LDAP_USER_BASEDN are required for the ldap backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DIRECTORY_BACKEND %q", c.Directory.Backend))
	}

	if c.Directory.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("DIRECTORY_FETCH_CONCURRENCY must be at least 1, got %d", c.Directory.FetchConcurrency))
	}
	if err := c.ValidateLocal(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateLocal checks only the settings of the local snapshot files.
func (c *ReportConfiguration) ValidateLocal() error {
	if c.Snapshot.Dir == "" {
		return errors.New("SNAPSHOT_DIR must not be empty")
	}
	return nil
}

// LoadTrainingGroups reads a JSON array of group names.
func LoadTrainingGroups(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read training groups %s: %w", path, err)
	}

	var groups []string
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("unable to decode training groups %s, possible formatting error: %w", path, err)
	}
	return groups, nil
}
