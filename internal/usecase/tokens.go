package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iolowookere217/xdulist/config"
)

const refreshTokenBytes = 64

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenIssuer mints the access/refresh pair and parses access tokens. The
// refresh token is an opaque capability; only the access token carries claims.
type TokenIssuer interface {
	Issue(userID, email, tier string) (*TokenPair, error)
	Parse(token string) (*jwt.Token, jwt.MapClaims, error)
	RefreshTTL() time.Duration
}

type tokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer fails when no secret is configured. That is a startup
// precondition, not a per-request error.
func NewTokenIssuer(cfg *config.Config) (TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret required")
	}
	return &tokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (s *tokenIssuer) Issue(userID, email, tier string) (*TokenPair, error) {
	if userID == "" {
		return nil, errors.New("subject required")
	}
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"tier":  tier,
		"iss":   s.issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	refresh, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *tokenIssuer) Parse(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	return token, claims, err
}

func (s *tokenIssuer) RefreshTTL() time.Duration { return s.refreshTTL }

// NewOpaqueToken returns hex of 64 crypto-random bytes. The raw value is
// handed out exactly once; everything server-side works on HashToken of it.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken is the one-way storage form for refresh and verification tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
