package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(Config{Username: "alice", PasswordHash: string(hash), Secret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew(t *testing.T) {
	a, err := New(Config{})
	if err != nil || a != nil {
		t.Fatalf("no user should disable auth, got %v %v", a, err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing hash", Config{Username: "u", Secret: testSecret}},
		{"bad hash", Config{Username: "u", PasswordHash: "plain", Secret: testSecret}},
		{"short secret", Config{Username: "u", PasswordHash: "$2a$04$abcdefghijklmnopqrstuuQW1MZ7DeNCLcJzG5tCcYfOhRdT2pv4m", Secret: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAuthenticator(t)

	token, expires, err := a.Login("alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("token already expired: %v", expires)
	}

	claims, err := a.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject = %q", claims.Subject)
	}

	for _, creds := range [][2]string{{"alice", "wrong"}, {"bob", "s3cret"}} {
		if _, _, err := a.Login(creds[0], creds[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s, %s) = %v", creds[0], creds[1], err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.Login("alice", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	expired := newTestAuthenticator(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.Login("alice", "s3cret")

	other := newTestAuthenticator(t)
	other.secret = []byte(strings.Repeat("x", 32))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: tokenType})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		auth  *Authenticator
		token string
	}{
		{"garbage", a, "not-a-token"},
		{"tampered", a, token + "x"},
		{"expired", a, old},
		{"other secret", other, token},
		{"alg none", a, unsigned},
		{"wrong type", a, refresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.auth.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Validate = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")) != nil {
		t.Fatal("hash does not verify")
	}
}
