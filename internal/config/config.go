package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }
type LogCfg struct{ Level string }

type SecurityCfg struct {
	AESKey     []byte
	AdminToken string // guards the /api/v1 routes
}

type ReconcileCfg struct {
	PollEvery   time.Duration
	Batch       int
	Concurrency int
	// SyncDelay is the first wait before a pending attempt is synced; later
	// waits grow from it.
	SyncDelay time.Duration
	MaxSyncs  int
}

type Cfg struct {
	App        AppCfg
	DB         DBCfg
	Redis      RedisCfg
	Log        LogCfg
	Sec        SecurityCfg
	Reconcile  ReconcileCfg
	Connectors Connectors
	// TestConnectors lists the wire names of test-double connectors that may run.
	TestConnectors []string
}

func Load() Cfg {
	// 1) Load .env into process env (if file exists)
	_ = godotenv.Load(".env")

	// 2) Read from env via viper
	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ADMIN_TOKEN", "")
	viper.SetDefault("CONNECTORS_FILE", "connectors.yaml")
	viper.SetDefault("TEST_CONNECTORS", "")
	viper.SetDefault("RECONCILE_POLL_EVERY", "5s")
	viper.SetDefault("RECONCILE_BATCH", 50)
	viper.SetDefault("RECONCILE_CONCURRENCY", 8)
	viper.SetDefault("RECONCILE_SYNC_DELAY", "30s")
	viper.SetDefault("RECONCILE_MAX_SYNCS", 10)

	key, keyErr := decodeKey(viper.GetString("AES_256_KEY_BASE64"))

	connectors, err := LoadConnectors(viper.GetString("CONNECTORS_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("connector settings")
	}

	cfg := Cfg{
		App: AppCfg{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Log:   LogCfg{Level: viper.GetString("LOG_LEVEL")},
		Sec: SecurityCfg{
			AESKey:     key,
			AdminToken: strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
		},
		Reconcile: ReconcileCfg{
			PollEvery:   viper.GetDuration("RECONCILE_POLL_EVERY"),
			Batch:       viper.GetInt("RECONCILE_BATCH"),
			Concurrency: viper.GetInt("RECONCILE_CONCURRENCY"),
			SyncDelay:   viper.GetDuration("RECONCILE_SYNC_DELAY"),
			MaxSyncs:    viper.GetInt("RECONCILE_MAX_SYNCS"),
		},
		Connectors:     connectors,
		TestConnectors: SplitList(viper.GetString("TEST_CONNECTORS")),
	}

	// 3) Fail fast on required settings
	// sandbox may run on the in-memory store
	if cfg.DB.DSN == "" && !cfg.IsSandbox() {
		log.Fatal().Msg("DB_DSN is required")
	}
	if keyErr != nil {
		log.Fatal().Err(keyErr).Msg("AES_256_KEY_BASE64")
	}
	return cfg
}

// LoadKey reads only the credential key, for tools that need nothing else.
func LoadKey() ([]byte, error) {
	_ = godotenv.Load(".env")
	viper.AutomaticEnv()
	return decodeKey(viper.GetString("AES_256_KEY_BASE64"))
}

func decodeKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// IsSandbox reports whether the process runs against connector sandboxes.
func (c Cfg) IsSandbox() bool { return c.App.Env == "" || c.App.Env == "sandbox" }

// ConnectorParams are the per-connector settings read from the connectors file.
type ConnectorParams struct {
	BaseURL          string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	SecondaryBaseURL string `mapstructure:"secondary_base_url" json:"secondary_base_url,omitempty" yaml:"secondary_base_url,omitempty"`
}

// Connectors is keyed by the connector's wire name. It is read-only once loaded.
type Connectors map[string]ConnectorParams

// Get returns the settings for id; a missing entry yields zero params.
func (c Connectors) Get(id string) ConnectorParams {
	return c[id]
}

// LoadConnectors reads a yaml/json/toml file shaped as
//
//	connectors:
//	  esnekpos:
//	    base_url: https://posservice.esnekpos.com/
//
// A missing file yields an empty map.
func LoadConnectors(path string) (Connectors, error) {
	if path == "" {
		return Connectors{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("connectors file not found; base urls empty")
		return Connectors{}, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := Connectors{}
	if err := v.UnmarshalKey("connectors", &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for id, p := range out {
		if p.BaseURL != "" && !strings.HasSuffix(p.BaseURL, "/") {
			p.BaseURL += "/"
			out[id] = p
		}
	}
	return out, nil
}

// SplitList splits a comma separated env value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
