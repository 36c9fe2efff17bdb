// Package auth gates who may join a server: an optional shared password
// and optional signed connect tokens.
package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordHeader  = "X-Server-Password"
	TokenParam      = "token"
	DefaultTokenTTL = 24 * time.Hour
	bcryptCost      = 12
	minPasswordLen  = 4
	failRateWindow  = 60 * time.Second
	maxFailedTries  = 10
)

var (
	ErrBadPassword       = errors.New("auth: wrong server password")
	ErrBadToken          = errors.New("auth: invalid connect token")
	ErrTooManyAttempts   = errors.New("auth: too many failed attempts, try again later")
	ErrPasswordTooShort  = fmt.Errorf("auth: password must be at least %d characters", minPasswordLen)
	ErrNoSecretForTokens = errors.New("auth: token secret not configured")
)

// Gate checks connection attempts. The zero-config Gate admits everyone.
type Gate struct {
	passwordHash []byte
	secret       []byte

	// failed attempts per IP
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewGate creates a gate. An empty hash disables the password check and an
// empty secret disables the token check.
func NewGate(passwordHash, tokenSecret string) *Gate {
	g := &Gate{rateMap: make(map[string]*rateEntry)}
	if passwordHash != "" {
		g.passwordHash = []byte(passwordHash)
	}
	if tokenSecret != "" {
		g.secret = []byte(tokenSecret)
	}
	return g
}

// HashPassword produces the value to put in the server config
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Admit checks an upgrade request. When tokens are enabled the token's
// subject is returned as the player name the client must use.
func (g *Gate) Admit(r *http.Request) (name string, err error) {
	ip := remoteIP(r)
	if g.blocked(ip) {
		return "", ErrTooManyAttempts
	}
	if err := g.CheckPassword(r.Header.Get(PasswordHeader)); err != nil {
		g.fail(ip)
		return "", err
	}
	name, err = g.CheckToken(r.URL.Query().Get(TokenParam))
	if err != nil {
		g.fail(ip)
		return "", err
	}
	return name, nil
}

// CheckPassword compares against the configured hash
func (g *Gate) CheckPassword(password string) error {
	if g.passwordHash == nil {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

// CheckToken validates a connect token and returns its subject
func (g *Gate) CheckToken(tokenStr string) (string, error) {
	if g.secret == nil {
		return "", nil
	}
	if tokenStr == "" {
		return "", fmt.Errorf("%w: missing", ErrBadToken)
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return g.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: no subject", ErrBadToken)
	}
	return sub, nil
}

// IssueToken signs a connect token for a player name
func (g *Gate) IssueToken(name string, ttl time.Duration) (string, error) {
	if g.secret == nil {
		return "", ErrNoSecretForTokens
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

func (g *Gate) blocked(ip string) bool {
	g.rateMu.Lock()
	defer g.rateMu.Unlock()
	entry, ok := g.rateMap[ip]
	return ok && time.Now().Before(entry.ResetAt) && entry.Count >= maxFailedTries
}

func (g *Gate) fail(ip string) {
	g.rateMu.Lock()
	defer g.rateMu.Unlock()

	now := time.Now()
	entry, ok := g.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		g.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(failRateWindow)}
		return
	}
	entry.Count++
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
