package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint      = "http://localhost:8000/analyze"
	DefaultSubmitTimeout = 2 * time.Minute
	DefaultMaxFileSize   = 25 * 1024 * 1024
	DefaultServerAddr    = "localhost:8080"
	DefaultStorage       = "./data"
)

const (
	EnvEndpoint        = "ANALYZER_ENDPOINT"
	EnvLogLevel        = "ANALYZER_LOG_LEVEL"
	EnvServerAddr      = "ANALYZER_SERVER_ADDR"
	EnvSubmitTimeout   = "ANALYZER_SUBMIT_TIMEOUT"
	EnvMaxFileSize     = "ANALYZER_MAX_FILE_SIZE"
	EnvStorageLocation = "ANALYZER_STORAGE_LOCATION"
)

type Config struct {
	Logging  Logging  `yaml:"logging"`
	Analysis Analysis `yaml:"analysis"`
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (l Logging) LevelOrDefault() string {
	level := strings.TrimSpace(l.Level)
	if level == "" {
		level = "INFO"
	}

	return strings.ToLower(level)
}

type Analysis struct {
	Endpoint      string        `yaml:"endpoint"`
	SubmitTimeout time.Duration `yaml:"submitTimeout"`
	// MaxFileSize in bytes, 0 disables the check.
	MaxFileSize int64 `yaml:"maxFileSize"`
	// Client.ExpectedCodes restricts successful responses to 200 by default
	// instead of accepting any status with a decodable body.
	Client web.Config `yaml:"client"`
}

func (a Analysis) EndpointOrDefault() string {
	if strings.TrimSpace(a.Endpoint) == "" {
		return DefaultEndpoint
	}

	return a.Endpoint
}

func (a Analysis) SubmitTimeoutOrDefault() time.Duration {
	if a.SubmitTimeout <= 0 {
		return DefaultSubmitTimeout
	}

	return a.SubmitTimeout
}

type Server struct {
	Addr string `yaml:"addr"`
}

func (s Server) AddrOrDefault() string {
	if strings.TrimSpace(s.Addr) == "" {
		return DefaultServerAddr
	}

	return s.Addr
}

const (
	REPLACE = "REPLACE"
	CREATE  = "CREATE"
)

type Storage struct {
	Location string `yaml:"location"`
	Mode     string `yaml:"mode"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Analysis: Analysis{
			Endpoint:      DefaultEndpoint,
			SubmitTimeout: DefaultSubmitTimeout,
			MaxFileSize:   DefaultMaxFileSize,
			Client:        web.DefaultConfig(),
		},
		Server: Server{
			Addr: DefaultServerAddr,
		},
		Storage: Storage{
			Location: DefaultStorage,
			Mode:     CREATE,
		},
	}
}

// Load reads the config file at path. The file must exist.
func Load(path string) (*Config, error) {
	s, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if s.IsDir() {
		return nil, fmt.Errorf("'%s' is a directory, not a regular file", path)
	}

	return buildConfig(path)
}

// LoadOrDefault behaves like Load but falls back to Default if path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Resolve loads the config file and applies the environment overrides. A
// missing file is only an error when the path was given explicitly.
func Resolve(path string, explicit bool, dotenvFiles ...string) (*Config, error) {
	var cfg *Config
	var err error
	if explicit {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadOrDefault(path)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(dotenvFiles...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildConfig(path string) (*Config, error) {
	// #nosec G304 path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}

	config := Default()

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("config unmarshal failed with: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	var err error

	u, pErr := url.Parse(c.Analysis.EndpointOrDefault())
	if pErr != nil {
		err = errors.Join(err, fmt.Errorf("invalid analysis endpoint: %w", pErr))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		err = errors.Join(err, fmt.Errorf("analysis endpoint must be an absolute http(s) url, got %s", u))
	}
	if c.Analysis.MaxFileSize < 0 {
		err = errors.Join(err, fmt.Errorf("maxFileSize must be >= 0"))
	}
	if c.Analysis.Client.Retries < 0 {
		err = errors.Join(err, fmt.Errorf("retries must be >= 0"))
	}
	if c.Storage.Mode != "" && c.Storage.Mode != CREATE && c.Storage.Mode != REPLACE {
		err = errors.Join(err, fmt.Errorf("unsupported storage mode %s", c.Storage.Mode))
	}

	return err
}

// ApplyEnv overrides config values with ANALYZER_* variables. Values from the
// process environment take precedence over the given dotenv files, missing
// dotenv files are ignored.
func (c *Config) ApplyEnv(dotenvFiles ...string) error {
	lookup, err := envLookup(dotenvFiles...)
	if err != nil {
		return err
	}

	return c.applyEnv(lookup)
}

func envLookup(dotenvFiles ...string) (func(string) (string, bool), error) {
	fromFiles := map[string]string{}
	for _, f := range dotenvFiles {
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range values {
			fromFiles[k] = v
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFiles[key]

		return v, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpoint); ok {
		c.Analysis.Endpoint = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvServerAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvStorageLocation); ok {
		c.Storage.Location = v
	}
	if v, ok := lookup(EnvSubmitTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSubmitTimeout, err)
		}
		c.Analysis.SubmitTimeout = d
	}
	if v, ok := lookup(EnvMaxFileSize); ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxFileSize, err)
		}
		c.Analysis.MaxFileSize = size
	}

	return c.Validate()
}
