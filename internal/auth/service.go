package auth

import (
	"time"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/identity"
)

const (
	tokenIssuer = "qrwallet"
	tokenType   = "access"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errs.Unauthenticated("invalid_token", "Invalid token")

// Token is the login response body.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject  string
	WalletID string
	Expires  time.Time
}

// Service issues and verifies access tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an access token for user.
func (s *Service) Issue(user identity.User) (Token, error) {
	now := s.now()
	claims := map[string]any{
		"sub":       user.Username,
		"wallet_id": user.WalletID,
		"typ":       tokenType,
		"iss":       tokenIssuer,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
	}
	signed, err := SignHS256(claims, s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer", ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Verify checks signature, type, issuer and time window.
func (s *Service) Verify(token string) (Claims, error) {
	raw, err := ParseAndVerifyHS256(token, s.secret)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := raw["sub"].(string)
	wallet, _ := raw["wallet_id"].(string)
	typ, _ := raw["typ"].(string)
	iss, _ := raw["iss"].(string)
	exp, expOK := raw["exp"].(float64)
	nbf, _ := raw["nbf"].(float64)
	if sub == "" || wallet == "" || typ != tokenType || iss != tokenIssuer || !expOK {
		return Claims{}, ErrInvalidToken
	}
	now := s.now().Unix()
	if now >= int64(exp) || now < int64(nbf) {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: sub, WalletID: wallet, Expires: time.Unix(int64(exp), 0).UTC()}, nil
}
