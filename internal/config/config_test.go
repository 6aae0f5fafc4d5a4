package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Name    string   `toml:"test.name" env:"TEST_NAME"`
	Enabled bool     `toml:"test.enabled" env:"TEST_ENABLED"`
	Count   int      `toml:"test.count" env:"TEST_COUNT"`
	Ratio   float64  `toml:"test.ratio" env:"TEST_RATIO"`
	Tags    []string `toml:"test.tags" env:"TEST_TAGS"`
	Nested  string   `toml:"outer.inner.value" env:"NESTED"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const tomlFixture = `
[test]
name = "from-toml"
enabled = true
count = 42
ratio = 0.5
tags = ["a", "b"]

[outer.inner]
value = "deep"
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, "gxcam.toml", tomlFixture)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := testOptions{
		Config:  opts.Config,
		Name:    "from-toml",
		Enabled: true,
		Count:   42,
		Ratio:   0.5,
		Tags:    []string{"a", "b"},
		Nested:  "deep",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	yamlFixture := `
test:
  name: from-yaml
  enabled: true
  count: 7
  ratio: 2
  tags: [x, y, z]
outer:
  inner:
    value: deep
`
	opts := &testOptions{Config: writeFile(t, "gxcam.yaml", yamlFixture)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Name != "from-yaml" || !opts.Enabled || opts.Count != 7 || opts.Ratio != 2 {
		t.Errorf("scalars = %+v", *opts)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"x", "y", "z"}) || opts.Nested != "deep" {
		t.Errorf("tags=%v nested=%q", opts.Tags, opts.Nested)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("GXCAM_TEST_NAME", "from-env")
	t.Setenv("GXCAM_TEST_COUNT", "9")
	t.Setenv("GXCAM_TEST_TAGS", "one, two")

	opts := &testOptions{Config: writeFile(t, "gxcam.toml", tomlFixture)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Name != "from-env" || opts.Count != 9 {
		t.Errorf("env not applied: %+v", *opts)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"one", "two"}) {
		t.Errorf("tags = %v", opts.Tags)
	}
	if !opts.Enabled {
		t.Error("file value lost")
	}
}

func TestLoadConfigChangedFlagsWin(t *testing.T) {
	t.Setenv("GXCAM_TEST_NAME", "from-env")

	var name string
	var count int
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&name, "name", "", "")
	cmd.Flags().IntVar(&count, "count", 0, "")
	if err := cmd.Flags().Set("name", "from-flag"); err != nil {
		t.Fatal(err)
	}

	opts := &testOptions{Config: writeFile(t, "gxcam.toml", tomlFixture), Name: "from-flag"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Name != "from-flag" {
		t.Errorf("Name = %q, want flag value", opts.Name)
	}
	if opts.Count != 42 {
		t.Errorf("Count = %d, want file value for unchanged flag", opts.Count)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Name: "default"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Name != "default" {
		t.Errorf("Name = %q", opts.Name)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]struct {
		file string
		body string
		env  map[string]string
	}{
		"invalid toml":  {file: "bad.toml", body: "[test\nname ="},
		"invalid yaml":  {file: "bad.yml", body: "test: [unclosed"},
		"type mismatch": {file: "types.toml", body: "[test]\ncount = \"many\""},
		"bad env int":   {file: "ok.toml", body: "", env: map[string]string{"GXCAM_TEST_COUNT": "lots"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: writeFile(t, tt.file, tt.body)}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected error for non-pointer options")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Device":                "device",
		"LoggingLevel":          "logging-level",
		"TransportFPS":          "transport-fps",
		"TelemetryNatsURL":      "telemetry-nats-url",
		"TelemetryMqttClientID": "telemetry-mqtt-client-id",
		"LedGpioPin":            "led-gpio-pin",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": "v"}},
		"x": 1,
	}
	if got := getNestedValue(data, "a.b.c"); got != "v" {
		t.Errorf("a.b.c = %v", got)
	}
	if got := getNestedValue(data, "x.y"); got != nil {
		t.Errorf("x.y = %v, want nil", got)
	}
	if got := getNestedValue(data, "a.missing.c"); got != nil {
		t.Errorf("a.missing.c = %v, want nil", got)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, "gxcam.toml", `
[logging]
level = "warn"
format = "json"
camera = "debug"
transport = "error"
`)
	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig: %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	want := map[string]string{"camera": "debug", "transport": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("modules = %v, want %v", cfg.Modules, want)
	}

	cfg, err = LoadLoggingConfig("")
	if err != nil || cfg.Level != "info" {
		t.Errorf("empty path = %+v, %v", cfg, err)
	}
}

func defaultOptions() Options {
	return Options{
		TransportKind:          "sim",
		LedBackend:             "sysfs",
		CapturePollTimeout:     "100ms",
		CaptureFrameTimeout:    "5s",
		CaptureFailureLogEvery: "5s",
		CaptureFailureLogBurst: 1,
		LedBlinkPeriod:         "500ms",
		LoggingLevel:           "info",
		LoggingFormat:          "text",
	}
}

func TestOptionsDurations(t *testing.T) {
	o := defaultOptions()
	d, err := o.Durations()
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	want := Durations{
		PollTimeout:     100 * time.Millisecond,
		FrameTimeout:    5 * time.Second,
		FailureLogEvery: 5 * time.Second,
		LedBlinkPeriod:  500 * time.Millisecond,
	}
	if d != want {
		t.Errorf("durations = %+v, want %+v", d, want)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := map[string]func(*Options){
		"unknown transport": func(o *Options) { o.TransportKind = "gige" },
		"unknown led":       func(o *Options) { o.LedBackend = "i2c" },
		"zero burst":        func(o *Options) { o.CaptureFailureLogBurst = 0 },
		"bad duration":      func(o *Options) { o.CapturePollTimeout = "soon" },
		"negative duration": func(o *Options) { o.CaptureFrameTimeout = "-1s" },
	}

	o := defaultOptions()
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := defaultOptions()
			mutate(&o)
			if err := o.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOptionsLoggingConfig(t *testing.T) {
	o := defaultOptions()
	o.LoggingCamera = "debug"
	cfg := o.LoggingConfig()
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Modules, map[string]string{"camera": "debug"}) {
		t.Errorf("modules = %v", cfg.Modules)
	}
}
