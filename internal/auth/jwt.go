package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredentials is returned by Login for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken covers missing, malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey struct{}

// Authenticator issues and verifies HMAC-signed bearer tokens for a single
// configured user.
type Authenticator struct {
	username string
	password string
	secret   []byte
	method   jwt.SigningMethod
	ttl      time.Duration
	now      func() time.Time
}

// Options configures an Authenticator.  An empty Secret generates a random
// per-process key, so tokens do not survive a restart.
type Options struct {
	Username  string
	Password  string
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// New builds an Authenticator.  Only the HS256, HS384 and HS512 algorithms
// are accepted.
func New(opts Options) (*Authenticator, error) {
	method, err := signingMethod(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	secret := []byte(opts.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Authenticator{
		username: opts.Username,
		password: opts.Password,
		secret:   secret,
		method:   method,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Login checks the credentials and returns a signed token whose subject is
// the username.
func (a *Authenticator) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK || a.username == "" {
		return "", ErrInvalidCredentials
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(a.method, claims).SignedString(a.secret)
}

// Verify parses a token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{a.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token.  Failures are
// handed to onError together with an error wrapping ErrInvalidToken.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				onError(w, r, fmt.Errorf("%w: missing bearer token", ErrInvalidToken))
				return
			}
			subject, err := a.Verify(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

// WithSubject stores the authenticated subject in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

// SubjectFromContext returns the authenticated subject, or "" when the
// request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(contextKey{}).(string)
	return s
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
}
