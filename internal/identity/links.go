package identity

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/luminacare/lumina/internal/shared"
)

// LoginLinkIssuer mints the short-lived signed links used to authenticate
// as a specific account without a password exchange. A link optionally
// embeds the masquerade grant token so the resulting session can be
// correlated back to its grant.
type LoginLinkIssuer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// LoginLinkClaims is the payload carried by a one-time login link.
type LoginLinkClaims struct {
	MasqueradeToken string `json:"mst,omitempty"`
	Redirect        string `json:"rdt,omitempty"`
	jwt.RegisteredClaims
}

// NewLoginLinkIssuer constructs a LoginLinkIssuer.
func NewLoginLinkIssuer(secret, baseURL string, ttl time.Duration) *LoginLinkIssuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LoginLinkIssuer{secret: []byte(secret), baseURL: baseURL, ttl: ttl}
}

// Mint returns the signed login URL for the target user.
func (i *LoginLinkIssuer) Mint(targetUserID int64, masqueradeToken, redirect string) (string, error) {
	now := time.Now()
	claims := LoginLinkClaims{
		MasqueradeToken: masqueradeToken,
		Redirect:        redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", targetUserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "lumina-identity",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", err
	}
	return i.baseURL + "/identity/exchange?token=" + url.QueryEscape(signed), nil
}

// Parse validates a link token and returns its claims. Expired or tampered
// links resolve to ErrUnauthenticated.
func (i *LoginLinkIssuer) Parse(token string) (*LoginLinkClaims, error) {
	claims := &LoginLinkClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithIssuer("lumina-identity"), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, shared.ErrUnauthenticated
	}
	return claims, nil
}
