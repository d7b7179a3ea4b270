package jwt

import (
	"testing"
	"time"
)

func TestValidateToken(t *testing.T) {
	secret := "validation-secret-key-32-chars"

	validToken, err := GenerateToken("editor-1", "laptop", time.Hour, secret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expiredToken, _ := GenerateToken("editor-1", "laptop", -time.Hour, secret)
	anonymousToken, _ := GenerateToken("", "laptop", time.Hour, secret)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr bool
	}{
		{name: "valid token", token: validToken, secret: secret},
		{name: "expired token", token: expiredToken, secret: secret, wantErr: true},
		{name: "wrong secret", token: validToken, secret: "wrong-secret", wantErr: true},
		{name: "missing user", token: anonymousToken, secret: secret, wantErr: true},
		{name: "garbage", token: "invalid.token.format", secret: secret, wantErr: true},
		{name: "empty token", token: "", secret: secret, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr {
				if err == nil {
					t.Error("ValidateToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.UserID != "editor-1" {
				t.Errorf("UserID = %v, want editor-1", claims.UserID)
			}
			if claims.DeviceID != "laptop" {
				t.Errorf("DeviceID = %v, want laptop", claims.DeviceID)
			}
		})
	}
}

func TestClaimsTimestamps(t *testing.T) {
	secret := "timestamp-test-secret"
	expiration := time.Hour

	before := time.Now().Add(-time.Second)
	token, err := GenerateToken("editor-2", "", expiration, secret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	after := time.Now().Add(time.Second)

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	expiresAt := claims.ExpiresAt.Time
	if expiresAt.Before(before.Add(expiration)) || expiresAt.After(after.Add(expiration)) {
		t.Errorf("ExpiresAt out of range: %v", expiresAt)
	}
	if claims.Subject != "editor-2" {
		t.Errorf("Subject = %v, want editor-2", claims.Subject)
	}
}
