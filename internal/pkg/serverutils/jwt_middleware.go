package serverutils

import (
	"fmt"
	"strings"
	"time"

	"career-chat-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIdKey = "user_id"

// JwtMiddleware resolves the caller from a bearer token and stores the id in ctx.Locals("user_id").
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return apperror.Unauthorized("Missing token")
		}

		userId, err := ParseToken(authHeader[7:], secret)
		if err != nil {
			return apperror.Unauthorized("Invalid token")
		}

		ctx.Locals(userIdKey, userId.String())
		return ctx.Next()
	}
}

// ParseToken validates an HS256 token and returns its user_id claim.
func ParseToken(tokenStr, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid claims")
	}
	raw, ok := claims[userIdKey].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing user_id claim")
	}
	return uuid.Parse(raw)
}

// GenerateToken signs an HS256 token carrying user_id and exp.
func GenerateToken(userId uuid.UUID, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdKey: userId.String(),
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// GetUserId reads the caller set by JwtMiddleware.
func GetUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := ctx.Locals(userIdKey).(string)
	if !ok {
		return uuid.Nil, apperror.Unauthorized("Unauthorized")
	}
	userId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Unauthorized("Unauthorized")
	}
	return userId, nil
}
