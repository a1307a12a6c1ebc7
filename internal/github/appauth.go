package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Assertion lifetime relative to its issued-at claim. Issued-at is skewed
// into the past to tolerate clock drift between us and GitHub.
const (
	assertionSkew     = 30 * time.Second
	assertionLifetime = 120 * time.Second
)

// AppAuth issues installation-scoped access tokens by exchanging a signed
// app assertion with GitHub. It holds the app's private key but caches no
// tokens: callers fetch per use.
type AppAuth struct {
	appID      int64
	privateKey *rsa.PrivateKey
	baseURL    string
	client     *http.Client
	now        func() time.Time
}

// InstallationToken is a short-lived token scoped to one installation
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAppAuth creates an AppAuth from a PEM-encoded RSA private key file
func NewAppAuth(appID int64, privateKeyPath, baseURL string) (*AppAuth, error) {
	pemBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read GitHub app private key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub app private key: %w", err)
	}

	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &AppAuth{
		appID:      appID,
		privateKey: key,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}, nil
}

// IssueInstallationToken exchanges a signed app assertion for an
// installation access token. No caching happens here; each call pays one
// round trip, which keeps token freshness trivially correct.
func (a *AppAuth) IssueInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error) {
	assertion, err := a.signAssertion()
	if err != nil {
		return nil, fmt.Errorf("failed to sign app assertion: %w", err)
	}

	requestURL := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", "ReviewCorral-Bot")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange app assertion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub token exchange failed (status %d): %s", resp.StatusCode, string(body))
	}

	var token InstallationToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode installation token: %w", err)
	}

	return &token, nil
}

func (a *AppAuth) signAssertion() (string, error) {
	issuedAt := a.now().Add(-assertionSkew)

	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", a.appID),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(assertionLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(a.privateKey)
}
