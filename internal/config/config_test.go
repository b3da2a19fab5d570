package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTunables_Defaults(t *testing.T) {
	tun, err := LoadTunables("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	sc := tun.SessionConfig()
	if sc.Debounce != 180*time.Millisecond {
		t.Fatalf("expected 180ms debounce, got %v", sc.Debounce)
	}
	if sc.DefaultLimit != 500 {
		t.Fatalf("expected limit 500, got %d", sc.DefaultLimit)
	}
	if tun.Comps.RadiusMiles != 0.5 || tun.Comps.SqftTolerance != 0.2 || tun.Comps.Limit != 15 {
		t.Fatalf("unexpected comps defaults: %+v", tun.Comps)
	}
	if tun.Map.MinPanZoom != 13 || tun.Map.FitPadding != 50 {
		t.Fatalf("unexpected map defaults: %+v", tun.Map)
	}
	if tun.Payment.Years != 30 {
		t.Fatalf("expected 30 year default, got %d", tun.Payment.Years)
	}
}

func TestLoadTunables_OverrideMergesAndExpandsEnv(t *testing.T) {
	t.Setenv("COMPS_RADIUS", "1.5")
	path := filepath.Join(t.TempDir(), "search.yaml")
	body := "comps:\n  radius_miles: ${COMPS_RADIUS}\nsearch:\n  debounce_ms: 150\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tun, err := LoadTunables(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tun.Comps.RadiusMiles != 1.5 {
		t.Fatalf("expected radius 1.5, got %v", tun.Comps.RadiusMiles)
	}
	if tun.Comps.Limit != 15 {
		t.Fatalf("expected untouched default limit 15, got %d", tun.Comps.Limit)
	}
	if tun.Search.DebounceMS != 150 || tun.Search.FetchTimeoutSeconds != 10 {
		t.Fatalf("unexpected search tunables: %+v", tun.Search)
	}
}

func TestLoadTunables_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero debounce", "search:\n  debounce_ms: 0\n"},
		{"limit above max", "search:\n  default_limit: 5000\n"},
		{"negative radius", "comps:\n  radius_miles: -1\n"},
		{"not yaml", "search: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadTunables(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := LoadTunables(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing override file")
	}
}

func TestCORSOrigins(t *testing.T) {
	got := corsOrigins(" https://a.example , ,https://b.example")
	if len(got) != 3 || got[1] != "https://a.example" || got[2] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("PS_TEST_INT", "42")
	t.Setenv("PS_TEST_BAD", "x")
	if getEnvInt("PS_TEST_INT", 1) != 42 || getEnvInt("PS_TEST_BAD", 7) != 7 || getEnvInt("PS_TEST_UNSET", 3) != 3 {
		t.Fatal("unexpected getEnvInt results")
	}
}

func TestLoad_MaxSessionsOverride(t *testing.T) {
	t.Setenv("SEARCH_CONFIG", "")
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{"override", "25", 25, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_SESSIONS", tt.value)
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for MAX_SESSIONS=%s, got %d sessions", tt.value, cfg.Tunables.Session.MaxSessions)
				}
				return
			}
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.Tunables.Session.MaxSessions != tt.want {
				t.Fatalf("expected %d sessions, got %d", tt.want, cfg.Tunables.Session.MaxSessions)
			}
		})
	}
}
