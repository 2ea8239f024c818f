package authservice

import (
	"fmt"
	"strconv"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/gtdweb/authsvc"
)

// Tokenizer signs the access token carried by the session cookie. The
// token only references a stored session; revoking the session revokes
// the token.
type Tokenizer interface {
	Generate(session authsvc.Session) (string, error)
}

type tokenizer struct {
	secret []byte
}

func NewTokenizer(secret string) Tokenizer {
	return &tokenizer{secret: []byte(secret)}
}

func (t *tokenizer) Generate(session authsvc.Session) (string, error) {
	if session.Token == "" || session.UserID == 0 {
		return "", authsvc.ErrInvalidArgument
	}

	claims := jwt.MapClaims{
		"uuid":    session.Token,
		"user_id": session.UserID,
		"exp":     session.ExpiresAt.Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// SessionClaims extracts the session token and user id from parsed claims.
func SessionClaims(claims jwt.MapClaims) (token string, userID uint64, err error) {
	token, ok := claims["uuid"].(string)
	if !ok || token == "" {
		return "", 0, authsvc.ErrClaimsInvalid
	}

	// Numeric claims decode as float64.
	userID, err = strconv.ParseUint(fmt.Sprintf("%.f", claims["user_id"]), 10, 64)
	if err != nil {
		return "", 0, authsvc.ErrClaimsInvalid
	}

	return token, userID, nil
}
