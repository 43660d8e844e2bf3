package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of an issued token.
	DefaultTokenTTL = 24 * time.Hour
	// DefaultIssuer is the iss claim when none is configured.
	DefaultIssuer = "campus-portal"
	// MinSecretLength is the shortest accepted HMAC secret, in bytes.
	MinSecretLength = 32

	tokenIDBytes = 16 // 128-bit jti
)

// Claims is the closed set of fields carried by a token.
type Claims struct {
	UserID    int64
	Username  string
	Role      Role
	TokenID   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity returns the request identity described by the claims.
func (c *Claims) Identity() *Identity {
	return &Identity{
		UserID:    c.UserID,
		Username:  c.Username,
		Role:      c.Role,
		TokenID:   c.TokenID,
		ExpiresAt: c.ExpiresAt,
	}
}

// tokenClaims is the wire form: a flat JSON object.
type tokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Validate is called by the parser after the standard time and issuer checks.
func (c *tokenClaims) Validate() error {
	if c.UserID <= 0 || c.Username == "" {
		return errors.New("missing subject")
	}
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.ID == "" {
		return errors.New("missing jti")
	}
	return nil
}

// CodecConfig configures a Codec.
type CodecConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Codec issues and verifies HS256-signed bearer tokens. It holds no state
// besides its configuration and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec. The secret is copied.
func NewCodec(cfg CodecConfig, opts ...CodecOption) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}

	c := &Codec{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)

	return c, nil
}

// TTL returns the token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for sub. iat, exp, iss and a fresh random jti are
// added by the codec.
func (c *Codec) Issue(sub Subject) (string, *Claims, error) {
	role := Canonicalize(string(sub.Role))
	if sub.UserID <= 0 || sub.Username == "" || !role.Valid() {
		return "", nil, errors.New("incomplete token subject")
	}

	jti, err := newTokenID()
	if err != nil {
		return "", nil, err
	}

	// NumericDate has second precision; truncate so Issue and Decode agree.
	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(c.ttl)

	wire := &tokenClaims{
		UserID:   sub.UserID,
		Username: sub.Username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.issuer,
			Subject:   fmt.Sprintf("%d", sub.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &Claims{
		UserID:    sub.UserID,
		Username:  sub.Username,
		Role:      role,
		TokenID:   jti,
		Issuer:    c.issuer,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Decode verifies the token's structure, signature, issuer and expiry.
// Every failure is reported as ErrInvalidToken; the detailed reason is kept
// in the wrapped error for server-side logging.
func (c *Codec) Decode(token string) (*Claims, error) {
	var wire tokenClaims
	parsed, err := c.parser.ParseWithClaims(token, &wire, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    wire.UserID,
		Username:  wire.Username,
		Role:      wire.Role,
		TokenID:   wire.ID,
		Issuer:    wire.Issuer,
		IssuedAt:  timeOf(wire.IssuedAt),
		ExpiresAt: timeOf(wire.ExpiresAt),
	}, nil
}

// IsExpiry reports whether a Decode error was caused by expiry, for logging.
func IsExpiry(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

// IsBadSignature reports whether a Decode error was a signature mismatch.
func IsBadSignature(err error) bool {
	return errors.Is(err, jwt.ErrTokenSignatureInvalid)
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time.UTC()
}

func newTokenID() (string, error) {
	b := make([]byte, tokenIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
