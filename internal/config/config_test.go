package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Port        string   `toml:"server.port" env:"SERVER_PORT"`
	AuthEnabled bool     `toml:"auth.enabled" env:"AUTH_ENABLED"`
	Capacity    int      `toml:"sequencer.capacity" env:"SEQUENCER_CAPACITY"`
	Timeout     uint32   `toml:"device.timeout_ms" env:"DEVICE_TIMEOUT_MS"`
	Current     float64  `toml:"leds.red" env:"LEDS_RED"`
	Origins     []string `toml:"server.origins" env:"SERVER_ORIGINS"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testConfigTOML = `
[server]
port = ":9000"
origins = ["a", "b"]

[auth]
enabled = true

[sequencer]
capacity = 64

[device]
timeout_ms = 250

[leds]
red = 0.5
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, testConfigTOML)}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := testOptions{
		Config:      opts.Config,
		Port:        ":9000",
		AuthEnabled: true,
		Capacity:    64,
		Timeout:     250,
		Current:     0.5,
		Origins:     []string{"a", "b"},
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("LoadConfig() = %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LCRNODE_SERVER_PORT", ":7000")
	t.Setenv("LCRNODE_AUTH_ENABLED", "true")
	t.Setenv("LCRNODE_SEQUENCER_CAPACITY", "32")
	t.Setenv("LCRNODE_DEVICE_TIMEOUT_MS", "100")
	t.Setenv("LCRNODE_LEDS_RED", "0.25")
	t.Setenv("LCRNODE_SERVER_ORIGINS", " x , y ")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.Port != ":7000" || !opts.AuthEnabled || opts.Capacity != 32 || opts.Timeout != 100 || opts.Current != 0.25 {
		t.Errorf("LoadConfig() = %+v", *opts)
	}
	if !reflect.DeepEqual(opts.Origins, []string{"x", "y"}) {
		t.Errorf("Origins = %v, want [x y]", opts.Origins)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("LCRNODE_SERVER_PORT", ":7000")

	opts := &testOptions{Config: writeConfig(t, testConfigTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.Port != ":7000" {
		t.Errorf("Port = %q, want env value", opts.Port)
	}
	if opts.Capacity != 64 {
		t.Errorf("Capacity = %d, want file value", opts.Capacity)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("LCRNODE_SEQUENCER_CAPACITY", "32")

	opts := &testOptions{Config: writeConfig(t, testConfigTOML)}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Port, "port", "", "")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "")
	if err := cmd.Flags().Parse([]string{"--port", ":1234", "--capacity", "16"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.Port != ":1234" {
		t.Errorf("Port = %q, want flag value", opts.Port)
	}
	if opts.Capacity != 16 {
		t.Errorf("Capacity = %d, want flag value", opts.Capacity)
	}
	if !opts.AuthEnabled {
		t.Error("AuthEnabled not loaded from file")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v for a missing file", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, "[server\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig() should fail for invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":              "port",
		"LoggingLevel":      "logging-level",
		"SequencerCapacity": "sequencer-capacity",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"server": map[string]any{
			"tls":  map[string]any{"cert": "c.pem"},
			"port": ":8090",
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"server.port", ":8090"},
		{"server.tls.cert", "c.pem"},
		{"missing", nil},
		{"server.missing", nil},
		{"root.child", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValueIgnoresMismatch(t *testing.T) {
	opts := &testOptions{Capacity: 5, Timeout: 7}
	v := reflect.ValueOf(opts).Elem()

	setFieldValue(v.FieldByName("Capacity"), "not a number")
	setFieldValue(v.FieldByName("Timeout"), int64(-1))

	if opts.Capacity != 5 || opts.Timeout != 7 {
		t.Errorf("mismatched values changed fields: %+v", *opts)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
device = "debug"
sequencer = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("Level/Format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"device": "debug", "sequencer": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if def := LoadLoggingConfig(""); def.Level != "info" || def.Format != "text" {
		t.Errorf("default = %+v", def)
	}
}
