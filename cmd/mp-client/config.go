package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/connection"
)

// Config holds the mp-client configuration. Values come from the optional
// YAML file given by -config; command-line flags override them.
type Config struct {
	ConfigFile string `yaml:"-"`

	URL      string        `yaml:"url"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	JWT      string        `yaml:"jwt"`
	Culture  string        `yaml:"culture"`
	Timeout  time.Duration `yaml:"timeout"`

	// Discover looks the server up via mDNS when URL is empty.
	Discover bool   `yaml:"discover"`
	Instance string `yaml:"instance"`
	Iface    string `yaml:"iface"`

	DecodeOffset time.Duration `yaml:"decode_offset"`
	DecodeLocal  bool          `yaml:"decode_local"`
	StrictDecode bool          `yaml:"strict_decode"`

	Interactive  bool          `yaml:"interactive"`
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxFailures ends streaming after this many consecutive failures.
	// Zero retries forever.
	MaxFailures int `yaml:"max_failures"`

	// Stream selects test points to stream in non-interactive mode.
	Equipment  string   `yaml:"equipment"`
	DataSource string   `yaml:"data_source"`
	TestPoints []string `yaml:"test_points"`

	ProtocolLog string `yaml:"protocol_log"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// defaultConfig returns the configuration used before the file and flags apply.
func defaultConfig() Config {
	return Config{
		Culture:      "en",
		Timeout:      client.DefaultTimeout,
		Interactive:  true,
		PollInterval: time.Second,
		LogLevel:     "info",
	}
}

// listFlag is a comma-separated string list.
type listFlag struct{ list *[]string }

func (f listFlag) String() string {
	if f.list == nil {
		return ""
	}
	return strings.Join(*f.list, ",")
}

func (f listFlag) Set(s string) error {
	*f.list = nil
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*f.list = append(*f.list, v)
		}
	}
	return nil
}

func newFlagSet(cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("mp-client", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Configuration file path (YAML)")
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Server base URL, e.g. http://mp.local:8080")
	fs.StringVar(&cfg.User, "user", cfg.User, "Login user")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "Login password (default: $MP_PASSWORD)")
	fs.StringVar(&cfg.JWT, "jwt", cfg.JWT, "Log in with a JWT instead of the password")
	fs.StringVar(&cfg.Culture, "culture", cfg.Culture, "Language of tag titles and PD class names")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")

	fs.BoolVar(&cfg.Discover, "discover", cfg.Discover, "Discover the server via mDNS when -url is empty")
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "mDNS instance name to pick (default: first found)")
	fs.StringVar(&cfg.Iface, "iface", cfg.Iface, "Network interface for mDNS")

	fs.DurationVar(&cfg.DecodeOffset, "decode-offset", cfg.DecodeOffset, "Shift decoded timestamps by this offset")
	fs.BoolVar(&cfg.DecodeLocal, "decode-local", cfg.DecodeLocal, "Decode timestamps with the local zone offset")
	fs.BoolVar(&cfg.StrictDecode, "strict-decode", cfg.StrictDecode, "Fail on corrupt time-series payloads")

	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Run the interactive console")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Frame poll interval")
	fs.IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "Stop streaming after N consecutive failures (0 = never)")
	fs.StringVar(&cfg.Equipment, "eq", cfg.Equipment, "Equipment id to stream (non-interactive)")
	fs.StringVar(&cfg.DataSource, "ds", cfg.DataSource, "Data source id to stream (non-interactive)")
	fs.Var(listFlag{&cfg.TestPoints}, "tp", "Comma-separated test point ids to stream (non-interactive)")

	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Write a protocol capture (.mplog) to this file")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	return fs
}

// parseConfig builds the configuration from args. The file named by -config
// is read first and the flags are applied on top of it.
func parseConfig(args []string, output io.Writer) (Config, error) {
	cfg := defaultConfig()
	if err := newFlagSet(&cfg, output).Parse(args); err != nil {
		return cfg, err
	}

	if cfg.ConfigFile != "" {
		fileCfg := defaultConfig()
		if err := loadConfigFile(cfg.ConfigFile, &fileCfg); err != nil {
			return cfg, err
		}
		fileCfg.ConfigFile = cfg.ConfigFile
		if err := newFlagSet(&fileCfg, io.Discard).Parse(args); err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	if cfg.Password == "" {
		cfg.Password = os.Getenv("MP_PASSWORD")
	}
	return cfg, cfg.validate()
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.URL == "" && !c.Discover {
		return errors.New("-url or -discover is required")
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("max failures must not be negative, got %d", c.MaxFailures)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if !c.Interactive && len(c.TestPoints) > 0 && (c.Equipment == "" || c.DataSource == "") {
		return errors.New("-tp needs -eq and -ds")
	}
	return nil
}

// backoff returns the retry policy for cfg with the failure limit applied.
func (c Config) backoff(cfg connection.BackoffConfig) *connection.Backoff {
	cfg.MaxAttempts = c.MaxFailures
	return connection.NewBackoffWithConfig(cfg)
}

// clientConfig maps c onto a client configuration.
func (c Config) clientConfig(url string) client.Config {
	cc := client.DefaultConfig()
	cc.BaseURL = url
	cc.User = c.User
	cc.Password = c.Password
	cc.JWT = c.JWT
	cc.Culture = c.Culture
	cc.Timeout = c.Timeout
	cc.DecodeOffset = c.DecodeOffset
	cc.DecodeLocal = c.DecodeLocal
	cc.StrictDecode = c.StrictDecode
	return cc
}
