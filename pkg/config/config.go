package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "royalty-ledger.yaml"
	EnvPrefix   = "ROYALTY"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Source    SourceConfig    `mapstructure:"source"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type ArchiveConfig struct {
	Dir       string   `mapstructure:"dir"`
	DbPath    string   `mapstructure:"db_path"`
	LegacyDir string   `mapstructure:"legacy_dir"`
	S3        S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

type SourceConfig struct {
	Kind       string        `mapstructure:"kind"` // portal or filedrop
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	DropDir    string        `mapstructure:"drop_dir"`
	MaxRetries int           `mapstructure:"max_retries"`
	MinBackoff time.Duration `mapstructure:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

type VaultConfig struct {
	Kind       string `mapstructure:"kind"` // file or secretsmanager
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
	SecretID   string `mapstructure:"secret_id"`
	Region     string `mapstructure:"region"`
	Profile    string `mapstructure:"profile"`
}

type LedgerConfig struct {
	Kind            string `mapstructure:"kind"` // sheets or memory
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Sheet           string `mapstructure:"sheet"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type NormalizeConfig struct {
	DefaultCurrency string `mapstructure:"default_currency"`
	SkipZeroRows    bool   `mapstructure:"skip_zero_rows"`
	AllowEmpty      bool   `mapstructure:"allow_empty"`
}

type CatalogConfig struct {
	StartURL string        `mapstructure:"start_url"`
	Delay    time.Duration `mapstructure:"delay"` // minimum pause between storefront requests
	MaxPages int           `mapstructure:"max_pages"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var defaults = map[string]interface{}{
	"log.level":                  "info",
	"log.format":                 "console",
	"archive.dir":                "data/reports",
	"archive.db_path":            "data/royalty-ledger.duckdb",
	"archive.legacy_dir":         "",
	"archive.s3.bucket":          "",
	"archive.s3.prefix":          "",
	"archive.s3.region":          "",
	"archive.s3.profile":         "",
	"source.kind":                "portal",
	"source.base_url":            "https://www.dmsguild.com",
	"source.timeout":             60 * time.Second,
	"source.drop_dir":            "data/inbox",
	"source.max_retries":         3,
	"source.min_backoff":         2 * time.Second,
	"source.max_backoff":         time.Minute,
	"vault.kind":                 "file",
	"vault.path":                 "data/credentials.ini",
	"vault.passphrase":           "",
	"vault.secret_id":            "",
	"vault.region":               "",
	"vault.profile":              "",
	"ledger.kind":                "sheets",
	"ledger.spreadsheet_id":      "",
	"ledger.sheet":               "Sheet1",
	"ledger.credentials_file":    "",
	"normalize.default_currency": "USD",
	"normalize.skip_zero_rows":   false,
	"normalize.allow_empty":      false,
	"catalog.start_url":          "https://www.dmsguild.com/browse.php?filters=45471_0_0_0_0_0_0_0&src=fid45471",
	"catalog.delay":              3 * time.Second,
	"catalog.max_pages":          200,
	"catalog.timeout":            30 * time.Second,
	"server.host":                "localhost",
	"server.port":                8080,
}

// Load reads .env, then the YAML file at path, then ROYALTY_* environment
// overrides (ROYALTY_LEDGER_SPREADSHEET_ID sets ledger.spreadsheet_id).
// An empty path falls back to DefaultPath when that file exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	var problems []string

	switch c.Source.Kind {
	case "portal":
	case "filedrop":
		if c.Source.DropDir == "" {
			problems = append(problems, "source.drop_dir is required for the filedrop source")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown source.kind %q", c.Source.Kind))
	}
	if c.Source.MaxRetries < 1 {
		problems = append(problems, "source.max_retries must be at least 1")
	}
	if c.Source.MinBackoff <= 0 || c.Source.MaxBackoff < c.Source.MinBackoff {
		problems = append(problems, "source backoff bounds are invalid")
	}

	switch c.Vault.Kind {
	case "file":
		if c.Vault.Path == "" {
			problems = append(problems, "vault.path is required for the file vault")
		}
	case "secretsmanager":
		if c.Vault.SecretID == "" {
			problems = append(problems, "vault.secret_id is required for the secretsmanager vault")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown vault.kind %q", c.Vault.Kind))
	}

	switch c.Ledger.Kind {
	case "sheets":
		if c.Ledger.SpreadsheetID == "" {
			problems = append(problems, "ledger.spreadsheet_id is required for the sheets ledger")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger.kind %q", c.Ledger.Kind))
	}

	if c.Archive.Dir == "" {
		problems = append(problems, "archive.dir is required")
	}
	if len(c.Normalize.DefaultCurrency) != 3 {
		problems = append(problems, "normalize.default_currency must be an ISO 4217 code")
	}

	if len(problems) > 0 {
		return domain.NewInvalidInputError("invalid configuration: "+strings.Join(problems, "; "), nil)
	}
	return nil
}
