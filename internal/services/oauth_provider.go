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
	"time"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrOAuthDisabled = errors.New("google oauth is not enabled")

type GoogleProfile struct {
	ID            string
	Email         string
	Name          string
	Picture       string
	VerifiedEmail bool
}

type OAuthState struct {
	Nonce     string
	ExpiresAt time.Time
}

// GoogleOAuthService runs the authorization code flow against Google.
type GoogleOAuthService struct {
	Cfg         config.GoogleConfig
	UserInfoURL string
}

func NewGoogleOAuthService(cfg config.GoogleConfig) *GoogleOAuthService {
	return &GoogleOAuthService{Cfg: cfg, UserInfoURL: googleUserInfoURL}
}

func (s *GoogleOAuthService) Enabled() bool {
	return s.Cfg.Enabled()
}

func (s *GoogleOAuthService) OAuthConfig() (*oauth2.Config, error) {
	if !s.Enabled() {
		return nil, ErrOAuthDisabled
	}
	return &oauth2.Config{
		ClientID:     s.Cfg.ClientID,
		ClientSecret: s.Cfg.ClientSecret,
		RedirectURL:  s.Cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, nil
}

func (s *GoogleOAuthService) GenerateState() (*OAuthState, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, err
	}
	return &OAuthState{
		Nonce:     base64.URLEncoding.EncodeToString(nonceBytes),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}

func (s *GoogleOAuthService) AuthCodeURL(state string) (string, error) {
	oauthCfg, err := s.OAuthConfig()
	if err != nil {
		return "", err
	}
	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

func (s *GoogleOAuthService) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	oauthCfg, err := s.OAuthConfig()
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth_exchange_failed", map[string]interface{}{
			"provider": "google",
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}

	return s.userInfo(ctx, oauthCfg.Client(ctx, token))
}

func (s *GoogleOAuthService) userInfo(ctx context.Context, client *http.Client) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("google api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.ID == "" || data.Email == "" {
		return nil, errors.New("google profile is missing id or email")
	}

	return &GoogleProfile{
		ID:            data.ID,
		Email:         data.Email,
		Name:          data.Name,
		Picture:       data.Picture,
		VerifiedEmail: data.VerifiedEmail,
	}, nil
}
