// Package config handles the parsing and validation of application configuration
// from command-line arguments, an optional INI config file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/logger"
	"github.com/1Michael23/tf2-surveillance/internal/vars"
	"github.com/jessevdk/go-flags"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Monitor   Monitor       `group:"Monitor Options" env-namespace:"TF2SCAN"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"TF2SCAN_DB"`
	Webhook   Webhook       `group:"Webhook Options" namespace:"webhook" env-namespace:"TF2SCAN_WEBHOOK"`
	Heartbeat Heartbeat     `group:"Heartbeat Options" namespace:"heartbeat" env-namespace:"TF2SCAN_HEARTBEAT"`
	A2S       A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"TF2SCAN_A2S"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"TF2SCAN_GEOIP"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"TF2SCAN_LOG"`

	ConfigFile string `short:"c" long:"config" env:"TF2SCAN_CONFIG" description:"Path to INI config file (command line flags take precedence)" no-ini:"true"`
	Version    bool   `short:"v" long:"version" description:"Print version and build info" no-ini:"true"`
}

// Monitor holds the scan loop configuration.
type Monitor struct {
	// betteralign:ignore

	ServerFile   string        `short:"s" long:"server-file" env:"SERVER_FILE" ini-name:"server_file" description:"Newline-delimited list of server addresses (ip:port)" default:"servers.txt"`
	TargetFile   string        `short:"p" long:"target-file" env:"TARGET_FILE" ini-name:"target_file" description:"Newline-delimited list of watched player names, re-read every cycle" default:"target_players.txt"`
	RefreshDelay uint          `long:"refresh-delay" env:"REFRESH_DELAY" ini-name:"refresh_delay" description:"Seconds to sleep between the end of one cycle and the start of the next" default:"15"`
	Workers      int           `long:"workers" env:"WORKERS" ini-name:"workers" description:"Upper bound of concurrent endpoint scans" default:"200"`
	ScanTimeout  time.Duration `long:"scan-timeout" env:"SCAN_TIMEOUT" ini-name:"scan_timeout" description:"Deadline for scanning a single endpoint (info and players)" default:"10s"`
	Verbose      bool          `short:"m" long:"monitor" env:"MONITOR" ini-name:"monitor" description:"Log every player join and leave, not only watched players"`
	Once         bool          `long:"once" description:"Run a single scan cycle and exit" no-ini:"true"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path           string        `short:"d" long:"path" env:"PATH" ini-name:"database_file" description:"Path to SQLite database" default:"tf2-scan.db"`
	PruneOlderThan time.Duration `long:"prune-older-than" description:"Delete server and player events older than the given age, then exit" no-ini:"true"`
	GenerateCount  int           `long:"gen-fake-data" hidden:"true" no-ini:"true"`
}

// Webhook holds the alert webhook configuration.
type Webhook struct {
	// betteralign:ignore

	Enabled  bool          `long:"enabled" env:"ENABLED" ini-name:"webhook_enabled" description:"Send watched player alerts to the webhook"`
	URL      string        `long:"url" env:"URL" ini-name:"webhook_url" description:"Webhook URL (Discord compatible)"`
	Image    string        `long:"image" env:"IMAGE" ini-name:"webhook_image" description:"Avatar image URL of alert messages" default:"http://images.clipartpanda.com/alarm-clipart-1408568727.png"`
	Username string        `long:"username" env:"USERNAME" ini-name:"webhook_username" description:"Username of alert messages" default:"TF2-Alert"`
	Rate     float64       `long:"rate" env:"RATE" ini-name:"webhook_rate" description:"Sustained alert messages per second" default:"0.5"`
	Burst    int           `long:"burst" env:"BURST" ini-name:"webhook_burst" description:"Alert messages allowed in a burst" default:"5"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" ini-name:"webhook_timeout" description:"Webhook request timeout" default:"10s"`
}

// Heartbeat holds the push heartbeat configuration.
type Heartbeat struct {
	// betteralign:ignore

	Enabled   bool          `long:"enabled" env:"ENABLED" ini-name:"heartbeat_enabled" description:"Send a heartbeat request after every cycle"`
	URL       string        `long:"url" env:"URL" ini-name:"heartbeat_url" description:"Heartbeat URL, the scan latency in milliseconds is appended"`
	NoLatency bool          `long:"no-latency" env:"NO_LATENCY" ini-name:"heartbeat_no_latency" description:"Do not append the scan latency to the heartbeat URL"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" ini-name:"heartbeat_timeout" description:"Heartbeat request timeout" default:"10s"`
}

// A2S holds Source Query protocol configuration.
type A2S struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" ini-name:"a2s_timeout" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" ini-name:"a2s_buffer_size" description:"Response body buffer size" default:"3000"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" ini-name:"geoip_path" description:"Path to MMDB file, country tagging is disabled when empty"`
	URL      string        `long:"url" env:"URL" ini-name:"geoip_url" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" ini-name:"geoip_interval" description:"Update interval check" default:"24h"`
}

// Delay returns the pause between cycles.
func (m Monitor) Delay() time.Duration {
	return time.Duration(m.RefreshDelay) * time.Second
}

// Parse reads the configuration from flags, the config file and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// Load parses args, merges the config file named by --config and validates the result.
// Precedence: command line, config file, environment, defaults.
func Load(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return &cfg, nil
	}

	if cfg.ConfigFile != "" {
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfg.ConfigFile, err)
		}

		// re-apply command line over the file values
		if _, err := parser.ParseArgs(args); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Monitor.RefreshDelay < 1 {
		return errors.New("refresh delay must be at least 1 second")
	}
	if c.Monitor.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Monitor.ScanTimeout <= 0 {
		return errors.New("scan timeout must be positive")
	}
	if c.Storage.Path == "" {
		return errors.New("database path is required")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.New("webhook is enabled but webhook URL is empty")
	}
	if c.Heartbeat.Enabled && c.Heartbeat.URL == "" {
		return errors.New("heartbeat is enabled but heartbeat URL is empty")
	}

	return nil
}
