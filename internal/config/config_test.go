package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/warpdl/warpjs/common"
)

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Debug || s.LogFormat != FormatText {
		t.Errorf("unexpected log settings: %+v", s)
	}
	if s.MaxSleep != DefaultMaxSleep || s.ReportEvery != DefaultReportEvery || s.ReportBurst != DefaultReportBurst {
		t.Errorf("unexpected scheduler defaults: %+v", s)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warpjs.yaml")
	data := `
log:
  level: debug
  format: json
scheduler:
  max_sleep: 5s
  report_every: 250ms
  report_burst: 3
journal:
  path: /tmp/j.db
scripts:
  root: ./scripts
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !s.Debug || s.LogFormat != FormatJSON {
		t.Errorf("unexpected log settings: %+v", s)
	}
	if s.MaxSleep != 5*time.Second || s.ReportEvery != 250*time.Millisecond || s.ReportBurst != 3 {
		t.Errorf("unexpected scheduler settings: %+v", s)
	}
	if s.JournalPath != "/tmp/j.db" || s.ScriptRoot != "./scripts" {
		t.Errorf("unexpected paths: %+v", s)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	if _, err := Parse([]byte("scheduler:\n  max_slep: 1s\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Log.Format != FormatText {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestResolve_Invalid(t *testing.T) {
	cases := map[string]*Config{
		"level":    {Log: LogConfig{Level: "loud"}},
		"format":   {Log: LogConfig{Format: "xml"}},
		"duration": {Scheduler: SchedulerConfig{MaxSleep: "soon"}},
		"negative": {Scheduler: SchedulerConfig{ReportEvery: "-1s"}},
		"burst":    {Scheduler: SchedulerConfig{ReportBurst: -1}},
	}
	for name, cfg := range cases {
		if _, err := cfg.Resolve(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		common.DebugEnv:      "1",
		common.LogFormatEnv:  "pretty",
		common.JournalEnv:    "/var/lib/warpjs.db",
		common.ScriptRootEnv: "/srv/scripts",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !s.Debug || s.LogFormat != FormatPretty {
		t.Errorf("env did not override logging: %+v", s)
	}
	if s.JournalPath != "/var/lib/warpjs.db" || s.ScriptRoot != "/srv/scripts" {
		t.Errorf("env did not override paths: %+v", s)
	}
}

func TestApplyEnv_DebugFalse(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(k string) string {
		if k == common.DebugEnv {
			return "false"
		}
		return ""
	})
	if cfg.Log.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Log.Level)
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Errorf("empty: got %v %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "0s", time.Minute); err != nil || d != time.Minute {
		t.Errorf("zero should fall back to default, got %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "abc"); err == nil {
		t.Error("expected error for invalid duration")
	}
}
