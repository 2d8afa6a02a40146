package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "CORS_ORIGINS", "WS_ALLOWED_ORIGIN"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	// Browsers send a scheme-qualified Origin header and the websocket
	// check compares it verbatim, so the default must match exactly.
	if cfg.AllowedOrigin != "http://localhost:3000" {
		t.Errorf("AllowedOrigin = %q, want http://localhost:3000", cfg.AllowedOrigin)
	}
	if cfg.CORSOrigins != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %q, want http://localhost:3000", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WS_ALLOWED_ORIGIN", "https://app.example.com")
	t.Setenv("ENVIRONMENT", "prod")

	cfg := Load()

	if cfg.AllowedOrigin != "https://app.example.com" {
		t.Errorf("AllowedOrigin = %q, want the override", cfg.AllowedOrigin)
	}
	if cfg.Environment != "prod" {
		t.Errorf("Environment = %q, want prod", cfg.Environment)
	}
}
