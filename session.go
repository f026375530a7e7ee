package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrTokenExpired is returned when a session token is past its expiration
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed is returned when a session token fails parsing or its
// signature check
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED")

// JWTClaims is the session token payload
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey       []byte
	tokenExpiration  int
	extendedDuration int
	issuer           string
	audience         jwt.ClaimStrings
	logger           Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance. Durations are in
// hours; extendedDuration applies to remember-me sessions.
func NewTokenService(signingKey []byte, tokenExpiration, extendedDuration int, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	if extendedDuration < tokenExpiration {
		extendedDuration = tokenExpiration
	}

	return &TokenServiceImpl{
		signingKey:       signingKey,
		tokenExpiration:  tokenExpiration,
		extendedDuration: extendedDuration,
		issuer:           issuer,
		audience:         audience,
		logger:           logger,
	}
}

// NewTokenServiceFromConfig builds the token service off the shared Config.
func NewTokenServiceFromConfig(cfg Config, logger Logger) TokenService {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetExtendedTokenDuration(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		logger,
	)
}

// Generate creates a signed session token for the given identity
func (ts *TokenServiceImpl) Generate(identity Identity, extended bool) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	ttl := ts.tokenExpiration
	if extended {
		ttl = ts.extendedDuration
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttl) * time.Hour)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
