package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-grades-api/internal/models"
	appErrors "github.com/noah-isme/classroom-grades-api/pkg/errors"
)

func signToken(t *testing.T, secret, issuer string, method jwt.SigningMethod, userID string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   models.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenVerifier(t *testing.T) {
	verifier := NewTokenVerifier("secret", "identity")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: signToken(t, "secret", "identity", jwt.SigningMethodHS256, "teacher-1", time.Hour)},
		{name: "wrong secret", token: signToken(t, "other", "identity", jwt.SigningMethodHS256, "teacher-1", time.Hour), wantErr: true},
		{name: "wrong algorithm", token: signToken(t, "secret", "identity", jwt.SigningMethodHS512, "teacher-1", time.Hour), wantErr: true},
		{name: "wrong issuer", token: signToken(t, "secret", "elsewhere", jwt.SigningMethodHS256, "teacher-1", time.Hour), wantErr: true},
		{name: "expired", token: signToken(t, "secret", "identity", jwt.SigningMethodHS256, "teacher-1", -time.Minute), wantErr: true},
		{name: "missing subject", token: signToken(t, "secret", "identity", jwt.SigningMethodHS256, "", time.Hour), wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.ValidateToken(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "teacher-1", claims.UserID)
			assert.Equal(t, models.RoleTeacher, claims.Role)
		})
	}
}
