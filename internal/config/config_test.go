package config

import (
	"strings"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"APP_ENV":    "test",
		"APP_PORT":   "8080",
		"DB_USER":    "pos",
		"DB_HOST":    "localhost",
		"DB_PORT":    "3306",
		"DB_NAME":    "restaurant",
		"JWT_SECRET": "s3cret",
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(lookupFrom(baseEnv()))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.TimerKeyPrefix != "table_timer_" {
		t.Errorf("TimerKeyPrefix = %q", cfg.TimerKeyPrefix)
	}
	if cfg.SlotTickInterval != time.Minute {
		t.Errorf("SlotTickInterval = %s", cfg.SlotTickInterval)
	}
	if cfg.SlotRefreshInterval != 5*time.Minute {
		t.Errorf("SlotRefreshInterval = %s", cfg.SlotRefreshInterval)
	}
	if cfg.QueueEnabled {
		t.Error("QueueEnabled should default to false")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.TimerEventLog != "logs/table_timers.log" {
		t.Errorf("TimerEventLog = %q", cfg.TimerEventLog)
	}
}

func TestLoadFrom_Timezone(t *testing.T) {
	env := baseEnv()
	env["APP_TIMEZONE"] = "Asia/Bangkok"
	env["TIMER_EVENT_LOG"] = "/var/log/pos/timers.log"
	cfg, err := LoadFrom(lookupFrom(env))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Location.String() != "Asia/Bangkok" {
		t.Fatalf("Location = %v", cfg.Location)
	}
	noon := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC).In(cfg.Location)
	if noon.Hour() != 12 {
		t.Fatalf("05:00 UTC in Bangkok = %02d:00, want 12:00", noon.Hour())
	}
	if cfg.TimerEventLog != "/var/log/pos/timers.log" {
		t.Fatalf("TimerEventLog = %q", cfg.TimerEventLog)
	}

	env["APP_TIMEZONE"] = "Mars/Olympus_Mons"
	if _, err := LoadFrom(lookupFrom(env)); err == nil || !strings.Contains(err.Error(), "APP_TIMEZONE") {
		t.Fatalf("err = %v, want invalid APP_TIMEZONE", err)
	}
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	env := baseEnv()
	delete(env, "JWT_SECRET")
	_, err := LoadFrom(lookupFrom(env))
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("err = %v, want mention of JWT_SECRET", err)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	env := baseEnv()
	env["SLOT_TICK_INTERVAL"] = "15s"
	env["TIMER_KEY_PREFIX"] = "pos:timer:"
	env["QUEUE_ENABLED"] = "true"
	env["AMQP_URL"] = "amqp://broker/"
	env["CORS_ALLOWED_ORIGINS"] = "https://floor.example.com, ,https://bar.example.com"

	cfg, err := LoadFrom(lookupFrom(env))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.SlotTickInterval != 15*time.Second || cfg.TimerKeyPrefix != "pos:timer:" || !cfg.QueueEnabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RabbitURL != "amqp://broker/" {
		t.Fatalf("RabbitURL = %q", cfg.RabbitURL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://bar.example.com" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadFrom_RejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"SLOT_TICK_INTERVAL":    "soon",
		"SLOT_REFRESH_INTERVAL": "0s",
		"QUEUE_ENABLED":         "maybe",
	} {
		env := baseEnv()
		env[key] = val
		if _, err := LoadFrom(lookupFrom(env)); err == nil {
			t.Errorf("%s=%q accepted", key, val)
		}
	}
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Errorf("Capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Errorf("TTL = %s, want 10s", cfg.TTL)
	}
}

func TestRedisOptions_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "3")

	opts := RedisOptions()
	if opts.Addr != "redis:6380" || opts.DB != 3 {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || len(cfg.Methods) != 2 {
		t.Fatalf("Methods = %v", cfg.Methods)
	}
}
