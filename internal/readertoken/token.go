package readertoken

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the default lifetime for reader tokens.
	DefaultTokenTTL = 30 * 24 * time.Hour
	// DefaultLeeway is clock skew tolerance for token validation.
	DefaultLeeway = 30 * time.Second

	defaultIssuer = "pagepair-room"
)

// Identity is the reader identity carried inside a token.
type Identity struct {
	UserID string
	Name   string
	Color  string
}

type claims struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	jwt.RegisteredClaims
}

// Options configures reader token issuing and verification.
type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

// Manager issues and verifies HS256 reader tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
}

// New creates a token manager.
func New(opts Options) (*Manager, error) {
	secret := strings.TrimSpace(opts.Secret)
	if secret == "" {
		return nil, errors.New("reader token secret is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		leeway: leeway,
	}, nil
}

// Issue signs a token for the given reader identity.
func (m *Manager) Issue(id Identity) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", errors.New("reader token subject is required")
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:  id.Name,
		Color: id.Color,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// Verify validates a token and returns the reader identity it carries.
func (m *Manager) Verify(raw string) (Identity, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(raw, &parsed, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	)
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid reader token")
	}
	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return Identity{}, errors.New("reader token subject missing")
	}
	return Identity{
		UserID: subject,
		Name:   parsed.Name,
		Color:  parsed.Color,
	}, nil
}
