// Package config loads the server configuration from a YAML file and
// TURTLEALBUM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/mating"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TURTLEALBUM_"

type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Database DatabaseConfig    `yaml:"database"`
	Blob     BlobConfig        `yaml:"blob"`
	Log      LogConfig         `yaml:"log"`
	Mating   mating.Thresholds `yaml:"mating"`
	Admin    AdminConfig       `yaml:"admin"`
	Auth     AuthConfig        `yaml:"auth"`
	Import   ImportConfig      `yaml:"import"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	FrontendDir string `yaml:"frontend_dir"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// AdminConfig names the admin account created on first run.
type AdminConfig struct {
	Username string `yaml:"username"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// ImportConfig bounds the image archive accepted by the batch import.
type ImportConfig struct {
	MaxZipFiles int   `yaml:"max_zip_files"`
	MaxZipBytes int64 `yaml:"max_zip_bytes"`
}

// Default returns a configuration that runs locally with SQLite and
// filesystem blobs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "turtlealbum.sqlite3",
		},
		Blob: BlobConfig{
			Driver: string(blob.DriverFilesystem),
			FSRoot: "data/blobs",
		},
		Log:    LogConfig{Level: "info", Format: "console"},
		Mating: mating.DefaultThresholds,
		Admin:  AdminConfig{Username: "admin"},
		Auth:   AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		Import: ImportConfig{
			MaxZipFiles: 5000,
			MaxZipBytes: 500 << 20,
		},
	}
}

// Load reads path on top of Default and applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("FRONTEND_DIR", &c.Server.FrontendDir)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_DSN", &c.Database.DSN)
	str("BLOB_DRIVER", &c.Blob.Driver)
	str("BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("S3_BUCKET", &c.Blob.S3.Bucket)
	str("S3_REGION", &c.Blob.S3.Region)
	str("S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("LOG_FORMAT", &c.Log.Format)
	str("ADMIN_USERNAME", &c.Admin.Username)

	if v, ok := lookup(EnvPrefix + "S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sS3_PATH_STYLE: %w", EnvPrefix, err)
		}
		c.Blob.S3.PathStyle = b
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"NEED_MATING_DAYS", &c.Mating.NeedMatingDays},
		{"WARNING_DAYS", &c.Mating.WarningDays},
		{"MAX_ZIP_FILES", &c.Import.MaxZipFiles},
	}
	for _, i := range ints {
		v, ok := lookup(EnvPrefix + i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, i.name, err)
		}
		*i.dst = n
	}
	if v, ok := lookup(EnvPrefix + "TOKEN_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sTOKEN_TTL: %w", EnvPrefix, err)
		}
		c.Auth.TokenTTL = d
	}
	if v, ok := lookup(EnvPrefix + "MAX_ZIP_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_ZIP_BYTES: %w", EnvPrefix, err)
		}
		c.Import.MaxZipBytes = n
	}
	return nil
}

// Validate checks the values that cannot be caught later with a useful message.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver must be fs, s3 or memory, got %q", c.Blob.Driver)
	}
	if c.Mating.NeedMatingDays <= 0 || c.Mating.WarningDays <= c.Mating.NeedMatingDays {
		return fmt.Errorf("mating thresholds must satisfy 0 < need_mating_days < warning_days")
	}
	if c.Import.MaxZipFiles <= 0 || c.Import.MaxZipBytes <= 0 {
		return fmt.Errorf("import limits must be positive")
	}
	if c.Auth.TokenTTL < time.Minute {
		return fmt.Errorf("auth.token_ttl must be at least 1m")
	}
	if strings.TrimSpace(c.Admin.Username) == "" {
		return fmt.Errorf("admin.username is required")
	}
	return nil
}

// BlobOptions converts the blob section for blob.Open.
func (c *Config) BlobOptions() blob.Options {
	return blob.Options{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}
