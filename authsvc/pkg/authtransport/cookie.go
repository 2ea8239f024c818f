package authtransport

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const SessionCookieName = "gtd_session"

// CookieCodec stores the signed access token in an encrypted, authenticated
// cookie.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCookieCodec expects blockKey to be a valid AES key length (16, 24 or
// 32 bytes). The Secure flag is set when secure is true.
func NewCookieCodec(hashKey, blockKey []byte, secure bool) *CookieCodec {
	return &CookieCodec{
		sc:     securecookie.New(hashKey, blockKey),
		secure: secure,
	}
}

func (c *CookieCodec) Write(w http.ResponseWriter, token string, expires time.Time) error {
	value, err := c.sc.Encode(SessionCookieName, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}

	var token string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return "", err
	}

	return token, nil
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
