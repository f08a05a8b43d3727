package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/portvapt/internal/model"
)

// TestNewConfig tests the NewConfig constructor.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"default Ports is 1-1024", cfg.Ports, "1-1024"},
		{"default Timeout is 200ms", cfg.Timeout, 200 * time.Millisecond},
		{"default Concurrency is 100", cfg.Concurrency, 100},
		{"default Banner is true", cfg.Banner, true},
		{"default Output is text", cfg.Output, "text"},
		{"default HTTPTimeout is 10s", cfg.HTTPTimeout, 10 * time.Second},
		{"default TLSTimeout is 5s", cfg.TLSTimeout, 5 * time.Second},
		{"default Verify is false", cfg.Verify, false},
		{"default Proxy is direct", cfg.Proxy, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

// TestConfigValidate tests the Validate method.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Host = "127.0.0.1"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid config returns nil", func(*Config) {}, nil},
		{"empty host returns ErrNoTarget", func(c *Config) { c.Host = "" }, ErrNoTarget},
		{"malformed range", func(c *Config) { c.Ports = "abc" }, model.ErrInvalidPortRange},
		{"reversed range", func(c *Config) { c.Ports = "100-1" }, model.ErrInvalidPortRange},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative http timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, ErrInvalidTimeout},
		{"zero tls timeout", func(c *Config) { c.TLSTimeout = 0 }, ErrInvalidTimeout},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"unknown output is not a validation error", func(c *Config) { c.Output = "xml" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigPortRange(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Ports = "20-25"
	r, err := cfg.PortRange()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Start != 20 || r.End != 25 {
		t.Errorf("PortRange() = %v", r)
	}
}

func boolPtr(b bool) *bool { return &b }

// TestFileSettingsFor tests merging of defaults and host blocks.
func TestFileSettingsFor(t *testing.T) {
	t.Parallel()

	f := &File{
		Defaults: Settings{
			Ports:       "1-1024",
			Concurrency: 50,
			Banner:      boolPtr(true),
			Proxy:       "socks5://127.0.0.1:1080",
		},
		Hosts: map[string]Settings{
			"192.0.2.10": {
				Ports:  "1-65535",
				Banner: boolPtr(false),
			},
		},
	}

	t.Run("returns defaults when host not found", func(t *testing.T) {
		t.Parallel()

		s := f.SettingsFor("198.51.100.1")
		if s.Ports != "1-1024" || s.Concurrency != 50 || !*s.Banner {
			t.Errorf("SettingsFor = %+v", s)
		}
	})

	t.Run("host block overrides defaults", func(t *testing.T) {
		t.Parallel()

		s := f.SettingsFor("192.0.2.10")
		if s.Ports != "1-65535" {
			t.Errorf("Ports = %q, want 1-65535", s.Ports)
		}
		if *s.Banner {
			t.Error("Banner should be overridden to false")
		}
		if s.Concurrency != 50 {
			t.Errorf("unset host field should keep the default, got %d", s.Concurrency)
		}
		if s.Proxy != "socks5://127.0.0.1:1080" {
			t.Errorf("Proxy = %q", s.Proxy)
		}
	})

	t.Run("nil hosts map", func(t *testing.T) {
		t.Parallel()

		empty := &File{Defaults: Settings{Ports: "22-22"}}
		if s := empty.SettingsFor("any"); s.Ports != "22-22" {
			t.Errorf("Ports = %q", s.Ports)
		}
	})
}

// TestConfigApply tests overlaying settings onto a Config.
func TestConfigApply(t *testing.T) {
	t.Parallel()

	t.Run("set fields override", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Apply(Settings{
			Ports:       "80-90",
			Timeout:     time.Second,
			Concurrency: 10,
			Banner:      boolPtr(false),
			Output:      "json",
			Verify:      boolPtr(true),
			LogFile:     "/tmp/portvapt.log",
		})

		if cfg.Ports != "80-90" || cfg.Timeout != time.Second || cfg.Concurrency != 10 {
			t.Errorf("numeric fields not applied: %+v", cfg)
		}
		if cfg.Banner || !cfg.Verify {
			t.Errorf("bool fields not applied: banner=%v verify=%v", cfg.Banner, cfg.Verify)
		}
		if cfg.Output != "json" || cfg.LogFile != "/tmp/portvapt.log" {
			t.Errorf("string fields not applied: %+v", cfg)
		}
	})

	t.Run("unset fields keep defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Apply(Settings{})

		if *cfg != *NewConfig() {
			t.Errorf("empty settings changed config: %+v", cfg)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.portvapt.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `defaults:
  ports: "1-1024"
  timeout: 500ms
  concurrency: 200
  banner: false
  http_timeout: 3s
hosts:
  192.0.2.10:
    ports: "20-30"
    verify: true
`
		if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		d := cfg.Defaults
		if d.Timeout != 500*time.Millisecond {
			t.Errorf("Timeout = %v, want 500ms", d.Timeout)
		}
		if d.Concurrency != 200 || d.HTTPTimeout != 3*time.Second {
			t.Errorf("Defaults = %+v", d)
		}
		if d.Banner == nil || *d.Banner {
			t.Error("banner: false should decode to a false pointer")
		}
		if d.Verify != nil {
			t.Error("unset verify should stay nil")
		}

		host, ok := cfg.Hosts["192.0.2.10"]
		if !ok {
			t.Fatal("expected 192.0.2.10 in hosts")
		}
		if host.Ports != "20-30" || host.Verify == nil || !*host.Verify {
			t.Errorf("host settings = %+v", host)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Hosts map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("defaults:\n  concurrency: 5\n"), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Hosts == nil {
			t.Error("expected Hosts map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestLoad tests the explicit and implicit lookup rules.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing explicit file is an error", func(t *testing.T) {
		t.Parallel()

		_, _, err := Load("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "scan.yaml")
		if err := os.WriteFile(configPath, []byte("defaults:\n  output: markdown\n"), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, path, err := Load(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != configPath || f.Defaults.Output != "markdown" {
			t.Errorf("Load = %+v, %q", f, path)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"config": XDGConfigDir(), "data": XDGDataDir()} {
		if dir == "" {
			t.Errorf("%s dir is empty", name)
		}
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("%s dir %q should end with %q", name, dir, AppName)
		}
	}
}
