package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MessagingScope is the OAuth scope for FCM sends.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// ErrToken is returned when an access token cannot be obtained.
var ErrToken = errors.New("access token unavailable")

// TokenSource provides OAuth access tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ServiceAccountKey is the subset of a Google service-account JSON key used
// for the JWT-bearer grant.
type ServiceAccountKey struct {
	ProjectID    string `json:"project_id"`
	ClientEmail  string `json:"client_email"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceAccountKey reads a service-account key file.
func LoadServiceAccountKey(path string) (*ServiceAccountKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(b, &key); err != nil {
		return nil, fmt.Errorf("decode service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key %s: missing client_email or private_key", path)
	}
	if key.TokenURI == "" {
		key.TokenURI = defaultTokenURI
	}

	return &key, nil
}

// ServiceAccountTokenSource exchanges a signed RS256 assertion for an access
// token and caches it until a minute before it expires.
type ServiceAccountTokenSource struct {
	key        *ServiceAccountKey
	scope      string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServiceAccountTokenSource creates a token source for key and scope.
// A nil httpClient uses a client with a 30 second timeout.
func NewServiceAccountTokenSource(key *ServiceAccountKey, scope string, httpClient *http.Client) *ServiceAccountTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ServiceAccountTokenSource{
		key:        key,
		scope:      scope,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns a cached token or fetches a new one.
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires.Add(-time.Minute)) {
		return s.token, nil
	}

	token, ttl, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = s.now().Add(ttl)
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *ServiceAccountTokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	assertion, err := s.assertion()
	if err != nil {
		return "", 0, err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.key.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrToken, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrToken, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: token endpoint returned %d: %s", ErrToken, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrToken, err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: empty access_token", ErrToken)
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return tr.AccessToken, ttl, nil
}

func (s *ServiceAccountTokenSource) assertion() (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.key.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: parse private key: %v", ErrToken, err)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":   s.key.ClientEmail,
		"scope": s.scope,
		"aud":   s.key.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.key.PrivateKeyID != "" {
		token.Header["kid"] = s.key.PrivateKeyID
	}

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", ErrToken, err)
	}
	return signed, nil
}
