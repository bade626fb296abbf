package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/pkg/logger"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthProviderService drives the sign-in flow against the external
// identity providers (Google, GitHub).
type OAuthProviderService struct {
	cfg *config.Config

	mu     sync.Mutex
	states map[string]oauthState
}

type oauthState struct {
	provider  string
	expiresAt time.Time
}

// SSOProfile is the provider-agnostic identity returned after a
// successful code exchange.
type SSOProfile struct {
	Provider  string
	Email     string
	FirstName string
	LastName  string
	AvatarURL *string
}

func NewOAuthProviderService(cfg *config.Config) *OAuthProviderService {
	return &OAuthProviderService{
		cfg:    cfg,
		states: make(map[string]oauthState),
	}
}

func (s *OAuthProviderService) GetOAuthConfig(provider string) (*oauth2.Config, error) {
	switch strings.ToLower(provider) {
	case "google":
		if !s.cfg.SSO.Google.Enabled {
			return nil, errors.New("google oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.cfg.SSO.Google.ClientID,
			ClientSecret: s.cfg.SSO.Google.ClientSecret,
			RedirectURL:  s.cfg.SSO.Google.RedirectURL,
			Scopes:       strings.Split(s.cfg.SSO.Google.Scopes, ","),
			Endpoint:     google.Endpoint,
		}, nil

	case "github":
		if !s.cfg.SSO.GitHub.Enabled {
			return nil, errors.New("github oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.cfg.SSO.GitHub.ClientID,
			ClientSecret: s.cfg.SSO.GitHub.ClientSecret,
			RedirectURL:  s.cfg.SSO.GitHub.RedirectURL,
			Scopes:       strings.Split(s.cfg.SSO.GitHub.Scopes, ","),
			Endpoint:     githuboauth.Endpoint,
		}, nil

	default:
		return nil, errors.New("unknown oauth provider: " + provider)
	}
}

// GenerateState issues a nonce tying a pending sign-in to its provider.
// States expire after ten minutes and are single-use.
func (s *OAuthProviderService) GenerateState(provider string) (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", err
	}
	nonce := base64.URLEncoding.EncodeToString(nonceBytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range s.states {
		if time.Now().After(state.expiresAt) {
			delete(s.states, key)
		}
	}
	s.states[nonce] = oauthState{
		provider:  provider,
		expiresAt: time.Now().Add(10 * time.Minute),
	}
	return nonce, nil
}

func (s *OAuthProviderService) ConsumeState(nonce, provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[nonce]
	if !ok {
		return false
	}
	delete(s.states, nonce)
	return state.provider == provider && time.Now().Before(state.expiresAt)
}

func (s *OAuthProviderService) ExchangeCode(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	oauthCfg, err := s.GetOAuthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth_exchange_failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}
	return token, nil
}

func (s *OAuthProviderService) GetUserInfo(ctx context.Context, provider string, token *oauth2.Token) (*SSOProfile, error) {
	switch strings.ToLower(provider) {
	case "google":
		return s.getGoogleUserInfo(ctx, token)
	case "github":
		return s.getGitHubUserInfo(ctx, token)
	default:
		return nil, errors.New("unknown provider: " + provider)
	}
}

func (s *OAuthProviderService) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*SSOProfile, error) {
	oauthCfg, err := s.GetOAuthConfig("google")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.Email == "" {
		return nil, errors.New("google profile has no email")
	}

	return &SSOProfile{
		Provider:  "google",
		Email:     data.Email,
		FirstName: data.GivenName,
		LastName:  data.FamilyName,
		AvatarURL: optionalString(data.Picture),
	}, nil
}

func (s *OAuthProviderService) getGitHubUserInfo(ctx context.Context, token *oauth2.Token) (*SSOProfile, error) {
	oauthCfg, err := s.GetOAuthConfig("github")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if data.Email == "" {
		emailResp, err := client.Get("https://api.github.com/user/emails")
		if err == nil {
			defer emailResp.Body.Close()
			var emails []struct {
				Email    string `json:"email"`
				Primary  bool   `json:"primary"`
				Verified bool   `json:"verified"`
			}
			if json.NewDecoder(emailResp.Body).Decode(&emails) == nil {
				for _, e := range emails {
					if e.Primary && e.Verified {
						data.Email = e.Email
						break
					}
				}
			}
		}
	}
	if data.Email == "" {
		return nil, errors.New("github email not available")
	}

	firstName := data.Name
	lastName := ""
	if parts := strings.SplitN(data.Name, " ", 2); len(parts) == 2 {
		firstName, lastName = parts[0], parts[1]
	}
	if firstName == "" {
		firstName = data.Login
	}

	return &SSOProfile{
		Provider:  "github",
		Email:     data.Email,
		FirstName: firstName,
		LastName:  lastName,
		AvatarURL: optionalString(data.AvatarURL),
	}, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
