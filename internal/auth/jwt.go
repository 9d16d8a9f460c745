package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const (
	// SessionCookieName is the cookie the identity provider's front end stores its session token in.
	SessionCookieName = "__session"

	defaultLeeway       = 30 * time.Second
	defaultJWKSCacheTTL = 5 * time.Minute
	jwksCacheKey        = "jwks"
)

var errUnknownKey = errors.New("unknown token key")

// JWTConfig configures session token verification. Either Secret (HS256) or JWKSURL (RS256) must be set.
type JWTConfig struct {
	Secret     string
	JWKSURL    string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	HTTPClient *http.Client
}

// JWTAuthenticator verifies session tokens from the Authorization header or the session cookie.
type JWTAuthenticator struct {
	secret     []byte
	jwksURL    string
	issuer     string
	audience   string
	leeway     time.Duration
	httpClient *http.Client

	keys    *cache.Cache
	fetchMu sync.Mutex
}

func NewJWTAuthenticator(cfg JWTConfig) (*JWTAuthenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if secret == "" && jwksURL == "" {
		return nil, errors.New("jwt authenticator requires a secret or a jwks url")
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &JWTAuthenticator{
		secret:     []byte(secret),
		jwksURL:    jwksURL,
		issuer:     strings.TrimSpace(cfg.Issuer),
		audience:   strings.TrimSpace(cfg.Audience),
		leeway:     leeway,
		httpClient: client,
		keys:       cache.New(defaultJWKSCacheTTL, 2*defaultJWKSCacheTTL),
	}, nil
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return Identity{}, ErrNoCredentials
	}
	subject, err := a.VerifySubject(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ExternalID: subject, Token: token, Provider: "jwt"}, nil
}

// VerifySubject validates the token and returns its subject.
func (a *JWTAuthenticator) VerifySubject(token string) (string, error) {
	claims, err := a.parse(token, false)
	if errors.Is(err, errUnknownKey) && a.jwksURL != "" {
		claims, err = a.parse(token, true)
	}
	if err != nil {
		return "", fmt.Errorf("verify session token: %w", err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("token subject missing")
	}
	return subject, nil
}

func (a *JWTAuthenticator) parse(token string, refresh bool) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(a.validMethods()),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); ok {
			if len(a.secret) == 0 {
				return nil, errors.New("hmac tokens are not accepted")
			}
			return a.secret, nil
		}
		kid, _ := t.Header["kid"].(string)
		kid = strings.TrimSpace(kid)
		if kid == "" {
			return nil, errUnknownKey
		}
		keys, err := a.rsaKeys(refresh)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			return nil, errUnknownKey
		}
		return key, nil
	}, opts...)
	if err != nil {
		return claims, err
	}
	if !parsed.Valid {
		return claims, errors.New("invalid token")
	}
	return claims, nil
}

func (a *JWTAuthenticator) validMethods() []string {
	var methods []string
	if len(a.secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if a.jwksURL != "" {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	return methods
}

func (a *JWTAuthenticator) rsaKeys(refresh bool) (map[string]*rsa.PublicKey, error) {
	if a.jwksURL == "" {
		return nil, errUnknownKey
	}
	if !refresh {
		if cached, ok := a.keys.Get(jwksCacheKey); ok {
			return cached.(map[string]*rsa.PublicKey), nil
		}
	}

	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()
	keys, ttl, err := fetchJWKS(a.httpClient, a.jwksURL)
	if err != nil {
		return nil, err
	}
	a.keys.Set(jwksCacheKey, keys, ttl)
	return keys, nil
}

func fetchJWKS(client *http.Client, url string) (map[string]*rsa.PublicKey, time.Duration, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var payload struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, k := range payload.Keys {
		kid := strings.TrimSpace(k.Kid)
		if !strings.EqualFold(k.Kty, "RSA") || kid == "" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[kid] = pub
	}
	if len(keys) == 0 {
		return nil, 0, errors.New("jwks contains no usable rsa keys")
	}
	return keys, defaultJWKSCacheTTL, nil
}

func parseRSAPublicKey(nRaw, eRaw string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(nRaw))
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(eRaw))
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

func bearerToken(r *http.Request) string {
	if scheme, value := authorizationScheme(r); scheme == "bearer" {
		return value
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
