// Package security provides the token codec, key parsing, and hashing
// primitives for the auth subsystem.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, unsigned, expired,
	// not yet valid, or carries the wrong issuer or audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a structurally valid token has a
	// type claim that does not match the expected kind.
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenKind distinguishes access tokens from refresh tokens via the type claim.
type TokenKind string

const (
	// KindAccess marks short-lived tokens presented on ordinary API calls.
	KindAccess TokenKind = "access"
	// KindRefresh marks long-lived tokens bound to a session row; their sole
	// purpose is to mint a new token pair exactly once.
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed claim set shared by both token kinds:
// {sub, sid, type, iat, nbf, exp, iss, aud, jti}.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	TokenType string `json:"type"`
}

// TokenProvider issues and decodes signed JWTs using RS256 or ES256 (private/public key).
// Stateless; safe for concurrent use.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on every claim set and required on decode.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access token for the given user and session.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(userID, sessionID string) (string, time.Time, error) {
	return p.issue(userID, sessionID, KindAccess, p.accessTTL)
}

// IssueRefresh issues a long-lived refresh token bound to the given session.
// The caller must store a hash of the returned token on the session row.
func (p *TokenProvider) IssueRefresh(userID, sessionID string) (string, time.Time, error) {
	return p.issue(userID, sessionID, KindRefresh, p.refreshTTL)
}

func (p *TokenProvider) issue(userID, sessionID string, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		TokenType: string(kind),
	}
	token, err := p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Decode verifies signature, issuer, audience, and the exp/nbf window, then
// checks the type claim against expected. Claims are never trusted before the
// signature verifies. Returns ErrInvalidToken or ErrWrongTokenType.
func (p *TokenProvider) Decode(tokenString string, expected TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != string(expected) {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// NewSessionID returns a 256-bit random identifier, hex-encoded. Used as both
// the session primary key and the sid claim.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
