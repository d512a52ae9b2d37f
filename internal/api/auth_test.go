package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestToken_RoundTrip(t *testing.T) {
	tok, err := NewToken("s3cret", "alice", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	claims, err := ParseToken("s3cret", tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != RoleAdmin {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	good, _ := NewToken("s3cret", "alice", "", time.Hour)
	expired, _ := NewToken("s3cret", "alice", "", -time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("s3cret"))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]struct {
		secret string
		token  string
	}{
		"wrong secret": {"other", good},
		"expired":      {"s3cret", expired},
		"no subject":   {"s3cret", noSubject},
		"alg none":     {"s3cret", none},
		"garbage":      {"s3cret", "abc.def.ghi"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(tt.secret, tt.token); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewToken_RequiresSecret(t *testing.T) {
	if _, err := NewToken("", "alice", "", time.Hour); err == nil {
		t.Error("expected an error without a secret")
	}
}
