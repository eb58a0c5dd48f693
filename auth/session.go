package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the single cookie carrying the signed session token.
const SessionCookieName = "session"

// SessionTTL is the absolute session lifetime. There is no server-side
// session store: the cookie is the session, so a session cannot be revoked
// before its embedded expiry and role changes only propagate on re-login.
const SessionTTL = 24 * time.Hour

// Sessions issues, reads and clears the signed session cookie.
type Sessions struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewSessions creates a session manager. secure should be true in
// production so the cookie is only sent over TLS.
func NewSessions(secret string, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		secure: secure,
		now:    time.Now,
	}
}

// WithClock overrides the time source.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

// Issue signs the identity into a token and sets it as the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, user SessionUser) error {
	expiresAt := s.now().Add(SessionTTL)

	token, err := s.signedToken(user, expiresAt)
	if err != nil {
		return fmt.Errorf("auth: sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read returns the identity embedded in the request's session cookie, or nil
// when the cookie is absent, malformed, wrongly signed or expired. Parse
// failures are never surfaced as errors: no session is the only failure mode.
func (s *Sessions) Read(r *http.Request) *SessionUser {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil
	}
	email, ok := claims["email"].(string)
	if !ok {
		return nil
	}
	name, ok := claims["name"].(string)
	if !ok {
		return nil
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return nil
	}
	role := Role(roleStr)
	if !isValidRole(role) {
		return nil
	}

	return &SessionUser{
		ID:    userID,
		Email: email,
		Name:  name,
		Role:  role,
	}
}

// Clear deletes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) signedToken(user SessionUser, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
		"exp":   expiresAt.Unix(),
		"iat":   s.now().Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
