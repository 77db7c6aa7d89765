package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
	if cfg.UserID != "local" {
		t.Errorf("user id = %q, want local", cfg.UserID)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestAIConfig_Defaults(t *testing.T) {
	cfg := AIConfig{BaseURL: "http://localhost:11434", Model: "llama3.1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("minimal ai config should pass: %v", err)
	}
	if cfg.Timeout != 2*time.Minute || cfg.StepTimeout != time.Minute {
		t.Errorf("timeouts = %v/%v, want defaults", cfg.Timeout, cfg.StepTimeout)
	}
}

func TestAIConfig_RequiresEndpoint(t *testing.T) {
	cfg := AIConfig{Model: "llama3.1"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing base_url should fail validation")
	}
	cfg = AIConfig{BaseURL: "http://localhost:11434"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing model should fail validation")
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.AI.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch ai error")
	}
}
