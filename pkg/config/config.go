package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-account/pkg/account"
)

// Config is the complete simple-account configuration
type Config struct {
	DatabaseConfig DatabaseConfig
	AccountConfig  AccountConfig
	AdminConfig    AdminConfig
	AppConfig      app.AppConfig
}

// AccountConfig selects the store and tunes the account service
type AccountConfig struct {
	// Persistence is one of postgres, file or memory
	Persistence     string `env:"ACCOUNT_PERSISTENCE" env-default:"postgres"`
	DataDir         string `env:"ACCOUNT_DATA_DIR" env-default:"./data"`
	DigestEncoding  string `env:"ACCOUNT_DIGEST_ENCODING" env-default:"hex"`
	DefaultUserType string `env:"ACCOUNT_DEFAULT_USER_TYPE" env-default:"sys_user"`
	DepartmentID    int64  `env:"ACCOUNT_DEFAULT_DEPARTMENT_ID" env-default:"0"`
	BatchSize       int    `env:"ACCOUNT_BATCH_SIZE" env-default:"0"`

	// Migrate applies the embedded schema on startup for the postgres store
	Migrate bool `env:"ACCOUNT_MIGRATE" env-default:"true"`
}

// AdminConfig drives the optional bootstrap of admin roles and an admin account
type AdminConfig struct {
	RoleNames string `env:"ADMIN_ROLE_NAMES" env-default:"admin,superadmin"`
	Username  string `env:"ADMIN_USERNAME"`

	// Password is generated and printed once when empty
	Password string `env:"ADMIN_PASSWORD"`
}

// Roles returns the parsed admin role names
func (a AdminConfig) Roles() []string {
	return ParseAdminRoleNames(a.RoleNames)
}

// Enabled reports whether an admin account should be bootstrapped
func (a AdminConfig) Enabled() bool {
	return a.Username != ""
}

// Load reads the optional .env file and then the environment into a Config
func Load() (Config, error) {
	LoadEnvFile()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values cleanenv cannot check on its own
func (c Config) Validate() error {
	switch c.AccountConfig.Persistence {
	case "postgres", "postgresql", "file", "memory", "inmem":
	default:
		return fmt.Errorf("invalid ACCOUNT_PERSISTENCE: %s (supported: postgres, file, memory)", c.AccountConfig.Persistence)
	}
	if c.AccountConfig.Persistence == "file" && c.AccountConfig.DataDir == "" {
		return fmt.Errorf("ACCOUNT_DATA_DIR is required for file persistence")
	}
	if _, err := c.AccountConfig.Encoding(); err != nil {
		return fmt.Errorf("invalid ACCOUNT_DIGEST_ENCODING: %w", err)
	}
	if _, err := c.AccountConfig.UserType(); err != nil {
		return fmt.Errorf("invalid ACCOUNT_DEFAULT_USER_TYPE: %w", err)
	}
	if c.AccountConfig.BatchSize < 0 {
		return fmt.Errorf("ACCOUNT_BATCH_SIZE must not be negative: %d", c.AccountConfig.BatchSize)
	}
	return nil
}

// Encoding returns the parsed digest encoding
func (a AccountConfig) Encoding() (account.DigestEncoding, error) {
	return account.ParseDigestEncoding(a.DigestEncoding)
}

// UserType returns the parsed default user type
func (a AccountConfig) UserType() (account.UserType, error) {
	return account.ParseUserType(a.DefaultUserType)
}

// ServiceOptions translates the config into account service options
func (a AccountConfig) ServiceOptions() ([]account.Option, error) {
	encoding, err := a.Encoding()
	if err != nil {
		return nil, err
	}
	return []account.Option{
		account.WithDigestEncoding(encoding),
		account.WithDefaultDepartmentID(a.DepartmentID),
		account.WithBatchSize(a.BatchSize),
	}, nil
}

// LoadEnvFile loads environment variables from a .env file next to the
// executable or in the working directory. Variables already set are kept.
func LoadEnvFile() {
	envFile := ""
	if execPath, err := os.Executable(); err == nil {
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
	}

	// Also check current working directory
	if _, err := os.Stat(envFile); envFile == "" || os.IsNotExist(err) {
		cwd, err := os.Getwd()
		if err != nil {
			slog.Error("Failed to get current working directory", "error", err)
			return
		}
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found", "path", envFile)
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
	}
}
