package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Errorf("DatabaseDriver = %q", cfg.DatabaseDriver)
	}
	if cfg.Scale.StaleAfter != 5*time.Second {
		t.Errorf("StaleAfter = %v", cfg.Scale.StaleAfter)
	}
	if cfg.Location().String() != "Asia/Karachi" {
		t.Errorf("Location = %v", cfg.Location())
	}
	if len(cfg.Warnings()) != 3 {
		t.Errorf("expected 3 warnings, got %v", cfg.Warnings())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:weighbridge.db")
	t.Setenv("SCALE_WS_URL", "ws://127.0.0.1:8765")
	t.Setenv("SCALE_RECONNECT_MAX", "1m")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite || !cfg.MetricsEnabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Scale.ReconnectMax != time.Minute {
		t.Errorf("ReconnectMax = %v", cfg.Scale.ReconnectMax)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET must be provided"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32"},
		{"bad driver", map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"bad port", map[string]string{"JWT_SECRET": testSecret, "HTTP_PORT": "http"}, "HTTP_PORT"},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "SCALE_STALE_AFTER": "soon"}, "SCALE_STALE_AFTER"},
		{"half sheets", map[string]string{"JWT_SECRET": testSecret, "GOOGLE_SHEET_ID": "abc"}, "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
