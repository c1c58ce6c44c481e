package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"yanfarm/config"
	"yanfarm/database"
	"yanfarm/models"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const UserIDKey = contextKey("userID")
const UserRoleKey = contextKey("userRole")
const RequestIDKey = contextKey("requestID")
const TokenIDKey = contextKey("tokenID")
const TokenExpiryKey = contextKey("tokenExpiry")

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("invalid token")
)

var jwtConfig config.JWTConfig

// ConfigureJWT sets the signing secret, audience, issuer and lifetimes used
// by every token helper.
func ConfigureJWT(c config.JWTConfig) {
	jwtConfig = c
}

type AccessClaims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues an HS256 token; admins get the shorter lifetime.
func GenerateAccessToken(userID uint, role string) (string, time.Time, error) {
	if jwtConfig.Secret == "" {
		return "", time.Time{}, errors.New("JWT_SECRET is not set")
	}
	ttl := jwtConfig.UserTTL()
	if role == models.RoleAdmin {
		ttl = jwtConfig.AdminTTL()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	exp := now.Add(ttl)
	jti, err := generateJTI(16)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := AccessClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
			Issuer:    jwtConfig.Issuer,
		},
	}
	if jwtConfig.Audience != "" {
		claims.Audience = jwt.ClaimStrings{jwtConfig.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtConfig.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ValidateAccessToken checks signature, registered claims and revocation.
func ValidateAccessToken(ctx context.Context, tokenStr string) (*AccessClaims, error) {
	if jwtConfig.Secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if jwtConfig.Audience != "" {
		opts = append(opts, jwt.WithAudience(jwtConfig.Audience))
	}
	if jwtConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtConfig.Issuer))
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtConfig.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}

	if claims.ID != "" {
		revoked, err := IsRevoked(ctx, claims.ID)
		if err == nil && revoked {
			return nil, ErrTokenRevoked
		}
		// a revocation store outage does not fail authentication
	}
	return claims, nil
}

// RevokeJTI blacklists a token ID until ttl passes. Redis is used when
// configured, the revoked_tokens table otherwise.
func RevokeJTI(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if RedisClient != nil {
		return RedisClient.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err()
	}
	if database.DB != nil {
		return database.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.RevokedToken{ID: jti, RevokedAt: time.Now().UTC()}).Error
	}
	return errors.New("no revocation store configured")
}

func IsRevoked(ctx context.Context, jti string) (bool, error) {
	if RedisClient != nil {
		res, err := RedisClient.Exists(ctx, "jwt:blacklist:"+jti).Result()
		if err != nil {
			return false, err
		}
		return res > 0, nil
	}
	if database.DB != nil {
		var rec models.RevokedToken
		err := database.DB.WithContext(ctx).Where("id = ?", jti).First(&rec).Error
		if err == nil {
			return true, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return false, nil
}

func generateJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func GetUserID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(UserIDKey).(uint)
	return id, ok && id != 0
}

func GetRole(r *http.Request) string {
	role, _ := r.Context().Value(UserRoleKey).(string)
	return role
}

func GetTokenID(r *http.Request) (string, time.Time) {
	jti, _ := r.Context().Value(TokenIDKey).(string)
	exp, _ := r.Context().Value(TokenExpiryKey).(time.Time)
	return jti, exp
}

func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDKey).(string)
	return id
}
