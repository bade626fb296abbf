package services

import (
	"strings"
	"testing"

	"github.com/filedesk/backend/internal/config"
)

func ssoTestConfig() *config.Config {
	return &config.Config{
		SSO: config.SSOConfig{
			Google: config.OAuthProviderConfig{
				Enabled:      true,
				ClientID:     "google-client",
				ClientSecret: "google-secret",
				RedirectURL:  "http://localhost:8080/api/auth/sso/google/callback",
				Scopes:       "openid,profile,email",
			},
			GitHub: config.OAuthProviderConfig{
				Enabled: false,
			},
		},
	}
}

func TestGetOAuthConfig(t *testing.T) {
	service := NewOAuthProviderService(ssoTestConfig())

	cfg, err := service.GetOAuthConfig("google")
	if err != nil {
		t.Fatalf("expected google config, got %v", err)
	}
	if cfg.ClientID != "google-client" {
		t.Fatalf("unexpected client id %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 3 || cfg.Scopes[0] != "openid" {
		t.Fatalf("expected scopes split on commas, got %v", cfg.Scopes)
	}

	if _, err := service.GetOAuthConfig("github"); err == nil {
		t.Fatal("expected error for disabled provider")
	}
	if _, err := service.GetOAuthConfig("gitlab"); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	url := cfg.AuthCodeURL("state-nonce")
	if !strings.Contains(url, "state=state-nonce") {
		t.Fatalf("expected state in consent url, got %q", url)
	}
}

func TestStateIsSingleUseAndProviderBound(t *testing.T) {
	service := NewOAuthProviderService(ssoTestConfig())

	nonce, err := service.GenerateState("google")
	if err != nil {
		t.Fatalf("generate state failed: %v", err)
	}

	if service.ConsumeState(nonce, "github") {
		t.Fatal("state must not validate for a different provider")
	}
	// The failed attempt burned the nonce.
	if service.ConsumeState(nonce, "google") {
		t.Fatal("state must be single-use")
	}

	nonce, err = service.GenerateState("google")
	if err != nil {
		t.Fatalf("generate state failed: %v", err)
	}
	if !service.ConsumeState(nonce, "google") {
		t.Fatal("expected fresh state to validate once")
	}
	if service.ConsumeState(nonce, "google") {
		t.Fatal("expected second use to fail")
	}

	if service.ConsumeState("never-issued", "google") {
		t.Fatal("unknown state must not validate")
	}
}
