package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/animuse/animuse/pkg/errors"
)

// Verifier turns a bearer token into Claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// NewVerifier picks OIDC verification when an issuer is configured and falls
// back to HS256 tokens signed with the shared secret.
func NewVerifier(cfg Config, logger *slog.Logger) (Verifier, error) {
	if strings.TrimSpace(cfg.Issuer) != "" {
		return NewOIDCVerifier(cfg.Issuer, cfg.ClientID, logger), nil
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: either issuer or secret must be configured")
	}
	return NewHMACVerifier(cfg.Secret, cfg.TokenTTL), nil
}

// HMACVerifier validates and mints HS256 tokens.
type HMACVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACVerifier constructs the verifier. ttl applies to tokens minted by Issue.
func NewHMACVerifier(secret string, ttl time.Duration) *HMACVerifier {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HMACVerifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Issue signs a token for userID.
func (v *HMACVerifier) Issue(userID, email string) (string, error) {
	now := v.now()
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeAuthError, "failed to sign token", err)
	}
	return signed, nil
}

// Verify implements Verifier.
func (v *HMACVerifier) Verify(_ context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(v.now))
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token invalid", nil)
	}
	if claims.Subject == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing subject", nil)
	}
	return Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// OIDCVerifier validates ID tokens issued by an OpenID Connect provider. The
// provider's discovery document is fetched on first use.
type OIDCVerifier struct {
	issuer   string
	clientID string
	logger   *slog.Logger

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier constructs a lazily initialized verifier.
func NewOIDCVerifier(issuer, clientID string, logger *slog.Logger) *OIDCVerifier {
	return &OIDCVerifier{
		issuer:   strings.TrimRight(issuer, "/"),
		clientID: clientID,
		logger:   logger.With("component", "auth.oidc"),
	}
}

// NewOIDCVerifierWithKeys skips discovery and verifies against keySet.
func NewOIDCVerifierWithKeys(issuer, clientID string, keySet oidc.KeySet, logger *slog.Logger) *OIDCVerifier {
	v := NewOIDCVerifier(issuer, clientID, logger)
	v.verifier = oidc.NewVerifier(v.issuer, keySet, v.oidcConfig())
	return v
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing", nil)
	}
	verifier, err := v.idTokenVerifier(ctx)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to initialize oidc provider", err)
	}
	idToken, err := verifier.Verify(ctx, token)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	var extra struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token claims unreadable", err)
	}
	if extra.EmailVerified != nil && !*extra.EmailVerified {
		extra.Email = ""
	}
	return Claims{
		UserID:    idToken.Subject,
		Email:     extra.Email,
		ExpiresAt: idToken.Expiry,
	}, nil
}

func (v *OIDCVerifier) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	// the provider keeps using this context to refresh its key set
	provider, err := oidc.NewProvider(context.WithoutCancel(ctx), v.issuer)
	if err != nil {
		return nil, err
	}
	v.verifier = provider.Verifier(v.oidcConfig())
	v.logger.Info("oidc provider initialized", "issuer", v.issuer)
	return v.verifier, nil
}

func (v *OIDCVerifier) oidcConfig() *oidc.Config {
	return &oidc.Config{
		ClientID:          v.clientID,
		SkipClientIDCheck: v.clientID == "",
	}
}
