package config

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/david/proper-search/internal/comps"
	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/search"
	"github.com/david/proper-search/internal/viewport"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type SearchTunables struct {
	DebounceMS          int `yaml:"debounce_ms"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	DefaultLimit        int `yaml:"default_limit"`
}

type PaymentDefaults struct {
	DownPct float64 `yaml:"down_pct"`
	RatePct float64 `yaml:"rate_pct"`
	Years   int     `yaml:"years"`
}

type SessionTunables struct {
	MaxSessions int `yaml:"max_sessions"`
	IdleMinutes int `yaml:"idle_minutes"`
}

// Tunables are the pipeline settings read from YAML.
type Tunables struct {
	Search  SearchTunables  `yaml:"search"`
	Comps   comps.Params    `yaml:"comps"`
	Map     viewport.Config `yaml:"map"`
	Payment PaymentDefaults `yaml:"payment"`
	Session SessionTunables `yaml:"session"`
}

// Config holds process configuration from the environment plus Tunables.
type Config struct {
	Port           string
	DatabaseURL    string
	CORSOrigins    []string
	LocalStorePath string

	Tunables Tunables
}

// Load reads .env if present, then the environment, then the tunables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	tun, err := LoadTunables(os.Getenv("SEARCH_CONFIG"))
	if err != nil {
		return nil, err
	}
	tun.Session.MaxSessions = getEnvInt("MAX_SESSIONS", tun.Session.MaxSessions)
	if err := tun.validate(); err != nil {
		return nil, fmt.Errorf("MAX_SESSIONS: %w", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8081"),
		DatabaseURL:    getEnv("DATABASE_URL", db.DefaultURL),
		CORSOrigins:    corsOrigins(os.Getenv("CORS_ORIGINS")),
		LocalStorePath: getEnv("LOCAL_STORE_PATH", "./data/localstore.json"),
		Tunables:       *tun,
	}, nil
}

// LoadTunables parses the embedded defaults and, when path is set, merges
// that file over them. ${VAR} references are expanded in both.
func LoadTunables(path string) (*Tunables, error) {
	var t Tunables
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(defaultsYAML))), &t); err != nil {
		return nil, fmt.Errorf("parse embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Printf("[config] loaded overrides from %s", path)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t Tunables) validate() error {
	if t.Search.DebounceMS <= 0 {
		return fmt.Errorf("search.debounce_ms must be positive, got %d", t.Search.DebounceMS)
	}
	if t.Search.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("search.fetch_timeout_seconds must be positive, got %d", t.Search.FetchTimeoutSeconds)
	}
	if t.Search.DefaultLimit <= 0 || t.Search.DefaultLimit > db.MaxLimit {
		return fmt.Errorf("search.default_limit must be in 1..%d, got %d", db.MaxLimit, t.Search.DefaultLimit)
	}
	if _, err := t.Comps.Validate(); err != nil {
		return fmt.Errorf("comps: %w", err)
	}
	if t.Map.MinPanZoom <= 0 || t.Map.FitPadding < 0 {
		return fmt.Errorf("map: min_pan_zoom must be positive and fit_padding non-negative")
	}
	if t.Session.MaxSessions <= 0 {
		return fmt.Errorf("session.max_sessions must be positive, got %d", t.Session.MaxSessions)
	}
	return nil
}

// SessionConfig converts the tunables into search session settings.
func (t Tunables) SessionConfig() search.SessionConfig {
	return search.SessionConfig{
		Debounce:     time.Duration(t.Search.DebounceMS) * time.Millisecond,
		FetchTimeout: time.Duration(t.Search.FetchTimeoutSeconds) * time.Second,
		DefaultLimit: t.Search.DefaultLimit,
		Viewport:     t.Map,
	}
}

func (t Tunables) SessionIdle() time.Duration {
	return time.Duration(t.Session.IdleMinutes) * time.Minute
}

func corsOrigins(extra string) []string {
	origins := []string{"http://localhost:3000"}
	for _, o := range strings.Split(extra, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
