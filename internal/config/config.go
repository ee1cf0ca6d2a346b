package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/remote"
	"github.com/rservers/RightClaw-Build/internal/tier"
)

// Config is read once at process start and passed by value or pointer into
// every constructor. Nothing reads the environment after Load returns.
type Config struct {
	ServiceName string
	LogLevel    string

	TemporalAddress       string
	TemporalNamespace     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	HTTPListenAddr string
	MetricsAddr    string
	// APIKey is the shared secret the billing hook sends in X-API-Key.
	APIKey string

	// CoreDatabaseURL is optional. When set it backs the fleet inventory
	// lookup and the provisioning_log sink.
	CoreDatabaseURL string

	TierTablePath string
	ProductGroup  string
	Tiers         []model.Tier

	SSHKeyPath           string
	SSHUser              string
	SSHConnectTimeout    time.Duration
	RemoteCommandTimeout time.Duration
	RemoteTransport      string

	BootMaxWait      time.Duration
	BootPollInterval time.Duration
	ProbeDialTimeout time.Duration

	VerifyCommand    string
	SuspendCommand   string
	UnsuspendCommand string

	WHMCSAPIURL        string
	WHMCSAPIIdentifier string
	WHMCSAPISecret     string

	DebugDumpEvents bool
}

// Default remote commands for the OpenClaw gateway.
const (
	DefaultVerifyCommand    = model.DefaultVerifyCommand
	DefaultSuspendCommand   = model.DefaultSuspendCommand
	DefaultUnsuspendCommand = model.DefaultUnsuspendCommand
)

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:           getEnv("SERVICE_NAME", "rightclaw"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		APIKey:                getEnv("API_KEY", ""),
		CoreDatabaseURL:       getEnv("CORE_DATABASE_URL", ""),
		TierTablePath:         getEnv("TIER_TABLE_PATH", ""),
		ProductGroup:          getEnv("PRODUCT_GROUP", tier.DefaultProductGroup),
		SSHKeyPath:            getEnv("SSH_KEY_PATH", "/root/.ssh/rightservers_deploy"),
		SSHUser:               getEnv("SSH_USER", "root"),
		RemoteTransport:       strings.ToLower(getEnv("REMOTE_TRANSPORT", remote.TransportExec)),
		VerifyCommand:         getEnv("VERIFY_COMMAND", DefaultVerifyCommand),
		SuspendCommand:        getEnv("SUSPEND_COMMAND", DefaultSuspendCommand),
		UnsuspendCommand:      getEnv("UNSUSPEND_COMMAND", DefaultUnsuspendCommand),
		WHMCSAPIURL:           getEnv("WHMCS_API_URL", ""),
		WHMCSAPIIdentifier:    getEnv("WHMCS_API_IDENTIFIER", ""),
		WHMCSAPISecret:        getEnv("WHMCS_API_SECRET", ""),
	}

	var err error
	if cfg.SSHConnectTimeout, err = getDuration("SSH_CONNECT_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RemoteCommandTimeout, err = getDuration("REMOTE_COMMAND_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BootMaxWait, err = getDuration("BOOT_MAX_WAIT", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.BootPollInterval, err = getDuration("BOOT_POLL_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeDialTimeout, err = getDuration("PROBE_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DebugDumpEvents, err = getBool("DEBUG_DUMP_EVENTS", false); err != nil {
		return nil, err
	}

	cfg.Tiers = tier.DefaultTiers()
	if cfg.TierTablePath != "" {
		table, err := LoadTierFile(cfg.TierTablePath)
		if err != nil {
			return nil, err
		}
		cfg.Tiers = table.Tiers
		if table.ProductGroup != "" {
			cfg.ProductGroup = table.ProductGroup
		}
	}

	return cfg, nil
}

// Validate checks the settings a given binary needs. Roles are "event-api",
// "worker" and "provisionctl".
func (c *Config) Validate(role string) error {
	var missing []string
	var problems []string

	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case "event-api":
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("API_KEY", c.APIKey)
	case "worker", "provisionctl":
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("SSH_USER", c.SSHUser)
		if _, err := remote.NewTransport(c.RemoteTransport, c.SSHConnectTimeout); err != nil {
			problems = append(problems, fmt.Sprintf("REMOTE_TRANSPORT: %v", err))
		}
		if c.BootMaxWait <= 0 {
			problems = append(problems, "BOOT_MAX_WAIT must be positive")
		}
		if c.BootPollInterval <= 0 {
			problems = append(problems, "BOOT_POLL_INTERVAL must be positive")
		}
		if c.RemoteCommandTimeout <= 0 {
			problems = append(problems, "REMOTE_COMMAND_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("unknown config role %q", role)
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		problems = append(problems, "TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}
	if c.WHMCSAPIURL != "" && (c.WHMCSAPIIdentifier == "" || c.WHMCSAPISecret == "") {
		problems = append(problems, "WHMCS_API_IDENTIFIER and WHMCS_API_SECRET are required with WHMCS_API_URL")
	}

	if len(missing) > 0 {
		problems = append([]string{"missing required config: " + strings.Join(missing, ", ")}, problems...)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Credential returns the process-wide remote login without a password.
func (c *Config) Credential() model.Credential {
	return model.Credential{KeyPath: c.SSHKeyPath, User: c.SSHUser}
}

// Settings returns the per-run tunables carried in workflow input.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		BootMaxWait:      c.BootMaxWait,
		BootPollInterval: c.BootPollInterval,
		RemoteTimeout:    c.RemoteCommandTimeout,
		VerifyCommand:    c.VerifyCommand,
		SuspendCommand:   c.SuspendCommand,
		UnsuspendCommand: c.UnsuspendCommand,
		DumpEvent:        c.DebugDumpEvents,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("90s", "5m") and bare seconds ("300").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
