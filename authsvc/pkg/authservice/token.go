package authservice

import (
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
)

// Tokenizer signs and verifies tokens. Verify never consults the session
// registry; a token that verifies may still have been revoked.
type Tokenizer interface {
	Issue(userID, access string) (string, error)
	Verify(token string) (authsvc.Payload, error)
}

type claims struct {
	UserID string `json:"_id"`
	Access string `json:"access"`
	stdjwt.StandardClaims
}

type tokenizer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenizer returns an HS256 tokenizer. A zero ttl issues tokens without
// an expiry, leaving revocation to the session registry alone.
func NewTokenizer(secret []byte, ttl time.Duration) Tokenizer {
	return &tokenizer{secret: secret, ttl: ttl}
}

var uuidV4 = uuid.NewString

func (t *tokenizer) Issue(userID, access string) (string, error) {
	c := claims{
		UserID: userID,
		Access: access,
		StandardClaims: stdjwt.StandardClaims{
			Id:       uuidV4(),
			IssuedAt: stdjwt.TimeFunc().Unix(),
		},
	}
	if t.ttl != 0 {
		c.ExpiresAt = stdjwt.TimeFunc().Add(t.ttl).Unix()
	}

	return stdjwt.NewWithClaims(stdjwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *tokenizer) Verify(token string) (authsvc.Payload, error) {
	var c claims
	parsed, err := stdjwt.ParseWithClaims(token, &c, t.keyFunc)
	if err != nil || !parsed.Valid {
		return authsvc.Payload{}, authsvc.ErrTokenInvalid
	}

	if c.UserID == "" || c.Access == "" {
		return authsvc.Payload{}, authsvc.ErrTokenInvalid
	}

	return authsvc.Payload{UserID: c.UserID, Access: c.Access}, nil
}

func (t *tokenizer) keyFunc(token *stdjwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*stdjwt.SigningMethodHMAC); !ok {
		return nil, authsvc.ErrTokenInvalid
	}
	return t.secret, nil
}
