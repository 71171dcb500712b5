// Package auth validates bearer tokens and carries the authenticated
// principal through the request context. Tokens are either minted by this
// service (HS256 over the configured secret) or by an external
// authorization server (RS256, verified against its JWKS).
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/config"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Principal is the authenticated caller the core consumes.
type Principal struct {
	UserID string
	Email  string
	Name   string
	// Pod is set on pod-scoped tokens and restricts the token to one pod
	// host. Empty for global tokens.
	Pod  string
	Type string
}

type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Pod   string `json:"pod,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret   []byte
	jwks     keyfunc.Keyfunc
	issuer   string
	audience string
}

func NewVerifier(ctx context.Context, cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{audience: cfg.Audience, issuer: cfg.IssuerURL}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}

	if cfg.IssuerURL != "" {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" {
			jwksURL = strings.TrimRight(cfg.IssuerURL, "/") + "/.well-known/jwks.json"
		}
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("init jwks: %w", err)
		}
		v.jwks = jwks
	}

	if v.secret == nil && v.jwks == nil {
		return nil, errors.New("auth: no jwt secret and no issuer configured")
	}
	return v, nil
}

// NewStaticVerifier builds an HS256-only verifier. Used by tests.
func NewStaticVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) AuthenticateRequest(r *http.Request) (*Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrMissingToken
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	return v.Verify(tokenString)
}

func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodRS384.Alg(),
			jwt.SigningMethodRS512.Alg(),
		}),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Pod:    claims.Pod,
		Type:   claims.Type,
	}, nil
}

// keyfunc routes HMAC tokens to the shared secret and asymmetric tokens to
// the issuer's JWKS.
func (v *Verifier) keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if v.secret == nil {
			return nil, errors.New("hmac tokens are not enabled")
		}
		return v.secret, nil
	}
	if v.jwks == nil {
		return nil, errors.New("no issuer configured")
	}
	return v.jwks.Keyfunc(token)
}

// Sign mints an HS256 token for the principal. The engine itself never
// calls this; it exists for provisioning and tests.
func (v *Verifier) Sign(p *Principal, ttl time.Duration) (string, error) {
	if v.secret == nil {
		return "", errors.New("auth: signing requires a jwt secret")
	}
	now := time.Now()
	claims := &Claims{
		Email: p.Email,
		Name:  p.Name,
		Pod:   p.Pod,
		Type:  p.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// CheckPodScope enforces the pod claim: pod-scoped tokens are valid only
// on the host of the pod they name, global tokens only on the main domain.
func CheckPodScope(p *Principal, hostPod string) error {
	if p == nil {
		return nil
	}
	if p.Pod == "" {
		return nil
	}
	if hostPod == "" {
		return apperr.Forbidden("pod-scoped token used on the main domain")
	}
	if p.Pod != hostPod {
		return apperr.PodMismatch(p.Pod, hostPod)
	}
	return nil
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// AuthError maps an authentication failure onto its wire error.
func AuthError(err error) *apperr.Error {
	switch {
	case errors.Is(err, ErrMissingToken):
		return apperr.Unauthorized("missing bearer token")
	case errors.Is(err, ErrTokenExpired):
		return apperr.TokenExpired()
	default:
		return apperr.InvalidToken("invalid token")
	}
}
