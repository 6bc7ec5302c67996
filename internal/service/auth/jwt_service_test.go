package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/config"
)

const (
	testSecret      = "test-jwt-secret-that-is-32-chars-long"
	testWrongSecret = "wrong-secret-that-is-long-enough-too"
)

// newTestService builds a service with a fixed clock so expiry behavior is
// deterministic.
func newTestService(t *testing.T, secret string, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{
		JWTSecret:                   secret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.NoError(t, err)

	hmacSvc, ok := svc.(*hmacJWTService)
	require.True(t, ok)
	hmacSvc.timeFunc = now
	return hmacSvc
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:                   "too-short",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, testSecret, func() time.Time { return fixedTime })

	token, err := svc.GenerateToken(context.Background(), 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(60*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				token, err := svc.GenerateToken(context.Background(), 7)
				require.NoError(t, err)
				return svc, token
			},
			wantErr: nil,
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				token, err := genSvc.GenerateToken(context.Background(), 7)
				require.NoError(t, err)

				// Validate well past expiry plus clock skew.
				valSvc := newTestService(t, testSecret, func() time.Time {
					return fixedTime.Add(62 * time.Minute)
				})
				return valSvc, token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "expiry within clock skew is tolerated",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				token, err := genSvc.GenerateToken(context.Background(), 7)
				require.NoError(t, err)

				valSvc := newTestService(t, testSecret, func() time.Time {
					return fixedTime.Add(60*time.Minute + 30*time.Second)
				})
				return valSvc, token
			},
			wantErr: nil,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				token, err := genSvc.GenerateToken(context.Background(), 7)
				require.NoError(t, err)

				valSvc := newTestService(t, testWrongSecret, func() time.Time { return fixedTime })
				return valSvc, token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				return svc, "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "correctly signed token without time claims",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, func() time.Time { return fixedTime })

				// Valid signature, but no iat or exp at all.
				raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"uid":  int64(7),
					"type": "access",
					"sub":  "7",
				})
				token, err := raw.SignedString([]byte(testSecret))
				require.NoError(t, err)
				return svc, token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "refresh token rejected as access token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, func() time.Time { return fixedTime })
				token, err := svc.GenerateRefreshToken(context.Background(), 7)
				require.NoError(t, err)
				return svc, token
			},
			wantErr: ErrWrongTokenType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tc.setupFunc(t)

			claims, err := svc.ValidateToken(context.Background(), token)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), claims.UserID)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid refresh token", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, testSecret, func() time.Time { return fixedTime })

		token, err := svc.GenerateRefreshToken(context.Background(), 9)
		require.NoError(t, err)

		claims, err := svc.ValidateRefreshToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(9), claims.UserID)
		assert.Equal(t, "refresh", claims.TokenType)
		assert.Equal(t, fixedTime.Add(1440*time.Minute).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("expired refresh token", func(t *testing.T) {
		t.Parallel()
		genSvc := newTestService(t, testSecret, func() time.Time { return fixedTime })
		token, err := genSvc.GenerateRefreshToken(context.Background(), 9)
		require.NoError(t, err)

		valSvc := newTestService(t, testSecret, func() time.Time {
			return fixedTime.Add(1443 * time.Minute)
		})
		_, err = valSvc.ValidateRefreshToken(context.Background(), token)
		require.ErrorIs(t, err, ErrExpiredRefreshToken)
	})

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, testSecret, func() time.Time { return fixedTime })

		token, err := svc.GenerateToken(context.Background(), 9)
		require.NoError(t, err)

		_, err = svc.ValidateRefreshToken(context.Background(), token)
		require.ErrorIs(t, err, ErrWrongTokenType)
	})
}
