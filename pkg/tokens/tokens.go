package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Verification failures are classified so callers can decide between
// re-login, silent retry and compromise handling.
var (
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("bad token signature")
	ErrExpired      = errors.New("token expired")
	ErrWrongType    = errors.New("wrong token type")
)

// Claims is the payload carried by every issued token. TokenType makes the
// token self-describing; ChainID links a refresh token to its successors so
// reuse detection survives a registry rebuild.
type Claims struct {
	TokenType Type   `json:"typ"`
	ChainID   string `json:"cid,omitempty"`
	Scopes    string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Codec mints and verifies signed tokens. It holds no mutable state and is
// safe for concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	leeway        time.Duration
}

func NewCodec(accessSecret, refreshSecret []byte, issuer string, leeway time.Duration) *Codec {
	if leeway <= 0 {
		leeway = 60 * time.Second
	}
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		leeway:        leeway,
	}
}

func (c *Codec) secretFor(typ Type) ([]byte, error) {
	switch typ {
	case TypeAccess:
		return c.accessSecret, nil
	case TypeRefresh:
		return c.refreshSecret, nil
	default:
		return nil, ErrMalformed
	}
}

// Mint issues a token of the given type. A refresh token minted with an empty
// chainID starts a new rotation chain rooted at its own jti.
func (c *Codec) Mint(subject string, typ Type, chainID, scopes string, ttl time.Duration) (string, *Claims, error) {
	secret, err := c.secretFor(typ)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	if chainID == "" && typ == TypeRefresh {
		chainID = jti
	}

	claims := Claims{
		TokenType: typ,
		ChainID:   chainID,
		Scopes:    scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return raw, &claims, nil
}

// ParseAndVerify checks signature, structure, expiry (with leeway) and that
// the token is of the expected type. The signing key is chosen by the typ
// claim, so a refresh token presented where an access token is required fails
// with ErrWrongType rather than a signature error.
func (c *Codec) ParseAndVerify(raw string, want Type) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secretFor(claims.TokenType)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid {
		return nil, ErrBadSignature
	}
	if claims.TokenType != want {
		return nil, ErrWrongType
	}
	if claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, ErrMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}

// NewJTI returns a fresh collision-resistant token id.
func NewJTI() string { return uuid.NewString() }
