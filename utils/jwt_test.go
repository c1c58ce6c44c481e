package utils

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"yanfarm/config"
	"yanfarm/database"
	"yanfarm/models"

	"github.com/golang-jwt/jwt/v5"
)

func setupJWT(t *testing.T) {
	t.Helper()
	ConfigureJWT(config.JWTConfig{Secret: "test-secret", Issuer: "yanfarm", UserTTLHours: 24, AdminTTLHours: 6})
	t.Cleanup(func() { ConfigureJWT(config.JWTConfig{}) })
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setupJWT(t)
	tok, exp, err := GenerateAccessToken(42, models.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if d := time.Until(exp); d > 6*time.Hour || d < 5*time.Hour {
		t.Fatalf("admin token should live about 6h, got %s", d)
	}
	claims, err := ValidateAccessToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Role != models.RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	setupJWT(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID: 1,
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    "yanfarm",
		},
	})
	s, _ := expired.SignedString([]byte("test-secret"))
	if _, err := ValidateAccessToken(context.Background(), s); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "yanfarm",
		},
	})
	s, _ = wrongKey.SignedString([]byte("other"))
	if _, err := ValidateAccessToken(context.Background(), s); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{UserID: 1})
	s, _ = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ValidateAccessToken(context.Background(), s); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected alg none to be rejected, got %v", err)
	}
}

func TestRevokeFallsBackToDatabase(t *testing.T) {
	setupJWT(t)
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	tok, _, err := GenerateAccessToken(7, models.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateAccessToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := RevokeJTI(context.Background(), claims.ID, time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// revoking twice is harmless
	if err := RevokeJTI(context.Background(), claims.ID, time.Hour); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if _, err := ValidateAccessToken(context.Background(), tok); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}
