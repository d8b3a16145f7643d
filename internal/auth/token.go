package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

const signingMethod = "HS256"

var (
	errMissingSubject = errors.New("token has no subject")
	errMissingExpiry  = errors.New("token has no expiry")
)

// Claims carries the user id in the registered "sub" claim. Expiry is
// mandatory.
type Claims struct {
	jwt.RegisteredClaims
}

func (c Claims) Valid() error {
	if c.Subject == "" {
		return errMissingSubject
	}
	if c.ExpiresAt == nil {
		return errMissingExpiry
	}
	return c.RegisteredClaims.Valid()
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for userID that expires after the configured TTL.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify returns the user id embedded in tokenString. It fails with
// ErrExpiredToken or ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{signingMethod}))

	token, err := parser.ParseWithClaims(tokenString, claims, m.keyfunc)
	if err != nil {
		return "", Classify(err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (m *TokenManager) keyfunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != signingMethod {
		return nil, ErrInvalidToken
	}
	return m.secret, nil
}

// Classify folds a token parsing error into ErrExpiredToken or
// ErrInvalidToken. A token is reported as expired only when expiry is its
// sole defect, so a forged token never gets the expired signal.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrInvalidToken) {
		return err
	}

	var ve *jwt.ValidationError
	if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
		return ErrExpiredToken
	}
	return ErrInvalidToken
}
