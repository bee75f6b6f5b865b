package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("console-7", RoleDispatcher, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "console-7" {
		t.Errorf("Subject = %q, want console-7", claims.Subject)
	}
	if claims.Role != RoleDispatcher {
		t.Errorf("Role = %q, want dispatcher", claims.Role)
	}
	if claims.Issuer != "nexusgrid" || claims.ID == "" {
		t.Errorf("Issuer/ID = %q/%q", claims.Issuer, claims.ID)
	}
	if d := time.Until(claims.ExpiresAt.Time); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %v, want ~1h", d)
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("op", RoleOperator, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	diff := time.Until(claims.ExpiresAt.Time) - defaultTTL
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL off by %v", diff)
	}
}

func TestGenerateAccessToken_Rejects(t *testing.T) {
	if _, err := GenerateAccessToken("", RoleOperator, testSecret, 0); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("empty subject error = %v, want ErrTokenInvalid", err)
	}
	if _, err := GenerateAccessToken("op", Role("admin"), testSecret, 0); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("unknown role error = %v, want ErrUnknownRole", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := GenerateAccessToken("op", RoleOperator, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	expired := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "op",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: RoleOperator,
	})
	foreign := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "op",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: RoleOperator,
	})
	badRole := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "op",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: "owner",
	})
	noExpiry := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "op"},
		Role:             RoleOperator,
	})

	tests := []struct {
		name, token, secret string
	}{
		{"garbage", "not-a-jwt", testSecret},
		{"empty", "", testSecret},
		{"wrong secret", valid, "another-secret-key-at-least-32-chars"},
		{"expired", expired, testSecret},
		{"foreign issuer", foreign, testSecret},
		{"unknown role", badRole, testSecret},
		{"no expiry", noExpiry, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func sign(t *testing.T, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return s
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"operator", RoleOperator, false},
		{" Dispatcher ", RoleDispatcher, false},
		{"VIEWER", RoleViewer, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermJunctionRead, true},
		{RoleViewer, PermOverrideOperate, false},
		{RoleOperator, PermOverrideOperate, true},
		{RoleOperator, PermPreemptionDispatch, false},
		{RoleDispatcher, PermOverrideOperate, true},
		{RoleDispatcher, PermPreemptionDispatch, true},
		{Role("unknown"), PermJunctionRead, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}

	perms := PermissionsForRole(RoleOperator)
	perms[0] = "mutated"
	if !HasPermission(RoleOperator, PermJunctionRead) {
		t.Error("PermissionsForRole returned the internal slice")
	}
	if PermissionsForRole("nobody") != nil {
		t.Error("PermissionsForRole(unknown) should be nil")
	}
}
