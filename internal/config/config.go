package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort     = 8080
	DefaultPollInterval = 60 * time.Second
	DefaultDedupWindow  = 1 * time.Hour
	DefaultHistoryTTL   = 24 * time.Hour
	DefaultEscalDelay   = 15 * time.Minute
	DefaultSMSMaxLen    = 160
	DefaultWSInterval   = 5 * time.Second
)

// Config is the top-level printwatch configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Poll       PollConfig       `yaml:"poll"`
	Rules      []Rule           `yaml:"rules"`
	Dedup      DedupConfig      `yaml:"dedup"`
	History    HistoryConfig    `yaml:"history"`
	Notify     NotifyConfig     `yaml:"notify"`
	Escalation EscalationConfig `yaml:"escalation"`
}

// ServerConfig holds the HTTP API and WebSocket settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming REST clients.
	Auth AuthConfig `yaml:"auth"`

	// WSInterval controls how often the WebSocket hub broadcasts. Default: 5s.
	WSInterval time.Duration `yaml:"ws_interval"`
}

// AuthConfig controls client authentication on the API side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// PollConfig controls the printer polling loop.
type PollConfig struct {
	// Interval controls how often each printer is polled. Default: 60s.
	Interval time.Duration `yaml:"interval"`

	// Printers is the list of printers to monitor.
	Printers []Printer `yaml:"printers"`
}

// Printer describes one monitored printer exporter.
type Printer struct {
	// ID is a unique, human-readable identifier for this printer.
	ID string `yaml:"id"`

	// Endpoint is the full URL of the printer exporter's metrics endpoint.
	Endpoint string `yaml:"endpoint"`

	// Auth configures how the poller authenticates to this exporter.
	Auth ScrapeAuth `yaml:"auth"`
}

// ScrapeAuth specifies the authentication mode for a printer exporter.
type ScrapeAuth struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields, used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key resolved from the environment.
func (a ScrapeAuth) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token resolved from the environment.
func (a ScrapeAuth) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a ScrapeAuth) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// Rule defines one threshold-based alert condition evaluated against every
// poll of every printer.
type Rule struct {
	// Name is the condition type, used as the deduplication key together
	// with the printer ID.
	Name string `yaml:"name"`

	// Condition is a simple expression over exporter metrics:
	// "toner_level_pct < 10", "paper_jam == 1", "queue_depth > 50".
	Condition string `yaml:"condition"`

	// Severity is one of: low | medium | high | critical.
	Severity string `yaml:"severity"`

	// Title overrides the generated alert title. Optional.
	Title string `yaml:"title"`
}

// DedupConfig controls alert deduplication.
type DedupConfig struct {
	// Window is how long a repeated (printer, condition type) alert is
	// suppressed after one fires. Default: 1h.
	Window time.Duration `yaml:"window"`
}

// HistoryConfig controls in-memory alert retention.
type HistoryConfig struct {
	// TTL is how long alerts are kept in the in-memory history store.
	// Must be at least the dedup window. Default: 24h.
	TTL time.Duration `yaml:"ttl"`
}

// NotifyConfig holds default recipients and per-channel delivery settings.
type NotifyConfig struct {
	// Recipients is the default recipient list applied when a caller
	// supplies none.
	Recipients []string `yaml:"recipients"`

	Email EmailConfig `yaml:"email"`
	Slack WebhookConfig `yaml:"slack"`
	Teams WebhookConfig `yaml:"teams"`
	SMS   SMSConfig     `yaml:"sms"`
}

// EmailConfig configures the SMTP delivery channel.
type EmailConfig struct {
	Enabled bool `yaml:"enabled"`

	// SMTPHost and SMTPPort locate the outbound mail relay.
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`

	// From is the sender address.
	From string `yaml:"from"`

	// Username authenticates to the relay; PasswordEnv names the
	// environment variable holding the password. Both empty → no auth.
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the SMTP password resolved from the environment.
func (e EmailConfig) Password() string {
	if e.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(e.PasswordEnv)
}

// Addr returns the host:port dial address of the relay.
func (e EmailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", e.SMTPHost, e.SMTPPort)
}

// WebhookConfig configures one chat webhook delivery channel.
type WebhookConfig struct {
	Enabled bool `yaml:"enabled"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// SMSConfig configures the SMS gateway delivery channel.
type SMSConfig struct {
	Enabled bool `yaml:"enabled"`

	// GatewayURLEnv names the environment variable holding the gateway URL.
	GatewayURLEnv string `yaml:"gateway_url_env"`

	// TokenEnv names the environment variable holding the gateway bearer token.
	TokenEnv string `yaml:"token_env"`

	// MaxLength truncates the message body. Default: 160.
	MaxLength int `yaml:"max_length"`
}

// GatewayURL returns the SMS gateway URL resolved from the environment.
func (s SMSConfig) GatewayURL() string {
	if s.GatewayURLEnv == "" {
		return ""
	}
	return os.Getenv(s.GatewayURLEnv)
}

// Token returns the SMS gateway token resolved from the environment.
func (s SMSConfig) Token() string {
	if s.TokenEnv == "" {
		return ""
	}
	return os.Getenv(s.TokenEnv)
}

// EscalationConfig holds the tiered escalation policy.
type EscalationConfig struct {
	// BaseDelay is the suspension before the first acknowledgment check;
	// tier N waits N * BaseDelay before the next check. Default: 15m.
	BaseDelay time.Duration `yaml:"base_delay"`

	// Supervisors receive tier-2 escalation notices.
	Supervisors []string `yaml:"supervisors"`

	// Managers receive tier-3 escalation notices.
	Managers []string `yaml:"managers"`
}

// Load reads and parses the config file at path.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:   DefaultHTTPPort,
			WSInterval: DefaultWSInterval,
		},
		Poll: PollConfig{
			Interval: DefaultPollInterval,
		},
		Dedup: DedupConfig{
			Window: DefaultDedupWindow,
		},
		History: HistoryConfig{
			TTL: DefaultHistoryTTL,
		},
		Notify: NotifyConfig{
			SMS: SMSConfig{MaxLength: DefaultSMSMaxLen},
		},
		Escalation: EscalationConfig{
			BaseDelay: DefaultEscalDelay,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	seen := make(map[string]bool, len(cfg.Poll.Printers))
	for _, p := range cfg.Poll.Printers {
		if p.ID == "" {
			return fmt.Errorf("poll.printers: every printer needs an id")
		}
		if seen[p.ID] {
			return fmt.Errorf("poll.printers: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Endpoint == "" {
			return fmt.Errorf("poll.printers[%s]: endpoint is required", p.ID)
		}
		switch p.Auth.Mode {
		case "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("poll.printers[%s]: auth.mode %q unknown", p.ID, p.Auth.Mode)
		}
	}
	for _, r := range cfg.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules: every rule needs a name")
		}
		if r.Condition == "" {
			return fmt.Errorf("rules[%s]: condition is required", r.Name)
		}
		switch r.Severity {
		case "low", "medium", "high", "critical", "":
		default:
			return fmt.Errorf("rules[%s]: severity %q unknown: want low|medium|high|critical", r.Name, r.Severity)
		}
	}
	if cfg.Dedup.Window <= 0 {
		return fmt.Errorf("dedup.window must be positive")
	}
	if cfg.History.TTL < cfg.Dedup.Window {
		return fmt.Errorf("history.ttl %s is shorter than dedup.window %s", cfg.History.TTL, cfg.Dedup.Window)
	}
	if cfg.Escalation.BaseDelay <= 0 {
		return fmt.Errorf("escalation.base_delay must be positive")
	}
	if cfg.Notify.SMS.MaxLength <= 0 {
		return fmt.Errorf("notify.sms.max_length must be positive")
	}
	return nil
}

// EnabledChannels returns the names of all channels enabled in the config,
// in stable order: email, slack, teams, sms.
func (n NotifyConfig) EnabledChannels() []string {
	var out []string
	if n.Email.Enabled {
		out = append(out, "email")
	}
	if n.Slack.Enabled {
		out = append(out, "slack")
	}
	if n.Teams.Enabled {
		out = append(out, "teams")
	}
	if n.SMS.Enabled {
		out = append(out, "sms")
	}
	return out
}
