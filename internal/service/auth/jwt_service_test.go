package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/config"
	"github.com/phrazzld/boxpack-api/internal/domain"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testAuthConfig(secret string) config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   secret,
		BCryptCost:                  4,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 60 * 24,
	}
}

func newTestService(t *testing.T, secret string, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACService(testAuthConfig(secret), now)
	require.NoError(t, err)
	return svc
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(testAuthConfig("short"))
	assert.Error(t, err)

	cfg := testAuthConfig(testSecret)
	cfg.TokenLifetimeMinutes = 0
	_, err = NewJWTService(cfg)
	assert.Error(t, err)

	svc, err := NewJWTService(testAuthConfig(testSecret))
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, fixedClock(fixedTime))
	user := &domain.User{ID: uuid.New(), Name: "dana", IsManager: true}

	token, err := svc.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsManager)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	user := &domain.User{ID: uuid.New(), Name: "worker"}
	issuer := newTestService(t, testSecret, fixedClock(fixedTime))
	access, err := issuer.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), user)
	require.NoError(t, err)

	wrongKey := newTestService(t, "wrong-secret-that-is-long-enough-for-testing", fixedClock(fixedTime))

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		wantErr error
	}{
		{"valid", issuer, access, nil},
		{"within clock skew", newTestService(t, testSecret, fixedClock(fixedTime.Add(61*time.Minute))), access, nil},
		{"expired", newTestService(t, testSecret, fixedClock(fixedTime.Add(2*time.Hour))), access, ErrExpiredToken},
		{"wrong signature", wrongKey, access, ErrInvalidToken},
		{"malformed", issuer, "not.a.token", ErrInvalidToken},
		{"refresh token", issuer, refresh, ErrWrongTokenType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			claims, err := tc.svc.ValidateToken(context.Background(), tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.False(t, claims.IsManager)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	user := &domain.User{ID: uuid.New(), Name: "worker"}
	issuer := newTestService(t, testSecret, fixedClock(fixedTime))
	access, err := issuer.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), user)
	require.NoError(t, err)

	claims, err := issuer.ValidateRefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, fixedTime.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, err = issuer.ValidateRefreshToken(context.Background(), access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	later := newTestService(t, testSecret, fixedClock(fixedTime.Add(48*time.Hour)))
	_, err = later.ValidateRefreshToken(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)

	_, err = issuer.ValidateRefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, fixedClock(fixedTime))
	claims := jwtCustomClaims{
		UserID:    uuid.New(),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
