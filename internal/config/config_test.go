package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `notify:
  recipients: ["ops@example.com"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Poll.Interval != DefaultPollInterval {
		t.Errorf("poll.interval: got %v, want %v", cfg.Poll.Interval, DefaultPollInterval)
	}
	if cfg.Dedup.Window != DefaultDedupWindow {
		t.Errorf("dedup.window: got %v, want %v", cfg.Dedup.Window, DefaultDedupWindow)
	}
	if cfg.Escalation.BaseDelay != DefaultEscalDelay {
		t.Errorf("escalation.base_delay: got %v, want %v", cfg.Escalation.BaseDelay, DefaultEscalDelay)
	}
	if cfg.Notify.SMS.MaxLength != DefaultSMSMaxLen {
		t.Errorf("sms.max_length: got %d, want %d", cfg.Notify.SMS.MaxLength, DefaultSMSMaxLen)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: PW_KEY
    header: x-pw-key
poll:
  interval: 30s
  printers:
    - id: hq-floor2
      endpoint: http://10.0.0.12:9100/metrics
      auth:
        mode: bearer
        token_env: HQ_TOKEN
rules:
  - name: toner_low
    condition: "toner_level_pct < 10"
    severity: high
dedup:
  window: 30m
notify:
  recipients: ["ops@example.com"]
  email:
    enabled: true
    smtp_host: mail.example.com
    smtp_port: 587
    from: printwatch@example.com
  sms:
    enabled: true
    gateway_url_env: SMS_URL
    token_env: SMS_TOKEN
escalation:
  base_delay: 10m
  supervisors: ["supervisor@example.com"]
  managers: ["manager@example.com", "director@example.com"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-pw-key" {
		t.Errorf("header: got %q, want x-pw-key", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("poll.interval: got %v, want 30s", cfg.Poll.Interval)
	}
	if len(cfg.Poll.Printers) != 1 || cfg.Poll.Printers[0].ID != "hq-floor2" {
		t.Fatalf("printers: got %+v", cfg.Poll.Printers)
	}
	if cfg.Dedup.Window != 30*time.Minute {
		t.Errorf("dedup.window: got %v, want 30m", cfg.Dedup.Window)
	}
	if cfg.Escalation.BaseDelay != 10*time.Minute {
		t.Errorf("base_delay: got %v, want 10m", cfg.Escalation.BaseDelay)
	}
	if len(cfg.Escalation.Managers) != 2 {
		t.Errorf("managers: got %d entries, want 2", len(cfg.Escalation.Managers))
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad port", "server:\n  http_port: 70000\n", "out of range"},
		{"bad auth mode", "server:\n  auth:\n    mode: oauth\n", "auth.mode"},
		{"printer without endpoint", "poll:\n  printers:\n    - id: p1\n", "endpoint is required"},
		{"duplicate printer", "poll:\n  printers:\n    - id: p1\n      endpoint: http://a/metrics\n    - id: p1\n      endpoint: http://b/metrics\n", "duplicate id"},
		{"rule without condition", "rules:\n  - name: toner_low\n", "condition is required"},
		{"bad severity", "rules:\n  - name: r\n    condition: \"x > 1\"\n    severity: fatal\n", "severity"},
		{"ttl below window", "dedup:\n  window: 2h\nhistory:\n  ttl: 1h\n", "shorter than dedup.window"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yaml)
			_, err := Load(p)
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestEnabledChannels_Order(t *testing.T) {
	n := NotifyConfig{
		Email: EmailConfig{Enabled: true},
		SMS:   SMSConfig{Enabled: true},
		Teams: WebhookConfig{Enabled: true},
	}
	got := n.EnabledChannels()
	want := []string{"email", "teams", "sms"}
	if len(got) != len(want) {
		t.Fatalf("EnabledChannels: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledChannels[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatch_ReloadsRecipients(t *testing.T) {
	p := writeConfig(t, `notify:
  recipients: ["ops@example.com"]
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go Watch(ctx, p, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	// Give the watcher a moment to register before the rewrite.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(p, []byte(`notify:
  recipients: ["fleet@example.com", "facilities@example.com"]
`), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case c := <-reloaded:
		if len(c.Notify.Recipients) != 2 || c.Notify.Recipients[0] != "fleet@example.com" {
			t.Errorf("recipients after reload: got %v", c.Notify.Recipients)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWebhookURL_FromEnv(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_URL", "https://hooks.example.com/T123")
	w := WebhookConfig{URLEnv: "TEST_WEBHOOK_URL"}
	if got := w.URL(); got != "https://hooks.example.com/T123" {
		t.Errorf("URL: got %q", got)
	}
	if got := (WebhookConfig{}).URL(); got != "" {
		t.Errorf("URL with empty env name: got %q, want empty", got)
	}
}
