package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "travelbook_checkout"

// SessionCookie carries the checkout session id in a signed, encrypted cookie.
type SessionCookie struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
}

func NewSessionCookie(hashKey, blockKey []byte) *SessionCookie {
	sc := securecookie.New(hashKey, blockKey)
	maxAge := 24 * time.Hour
	sc.MaxAge(int(maxAge.Seconds()))
	return &SessionCookie{sc: sc, maxAge: maxAge}
}

func (c *SessionCookie) Set(w http.ResponseWriter, r *http.Request, sessionID string) error {
	encoded, err := c.sc.Encode(cookieName, map[string]string{"sid": sessionID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(c.maxAge.Seconds()),
	})
	return nil
}

func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (c *SessionCookie) Get(r *http.Request) (string, bool) {
	ck, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	val := map[string]string{}
	if err := c.sc.Decode(cookieName, ck.Value, &val); err != nil {
		return "", false
	}
	sid := val["sid"]
	return sid, sid != ""
}

type ctxKey string

const sessionKey ctxKey = "checkoutSession"

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

func sessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok
}
