package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"career-chat-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	userId := uuid.New()
	token, err := GenerateToken(userId, "secret", time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userId, got)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateToken(userId, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.Error(t, err)
}

func TestParseToken_RequiresExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestJwtMiddlewareAndErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/me", JwtMiddleware("secret"), func(ctx *fiber.Ctx) error {
		userId, err := GetUserId(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("ok", userId.String()))
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return apperror.Internal("failed to load", errors.New("pq: connection refused"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(401), body["code"])

	userId := uuid.New()
	token, err := GenerateToken(userId, "secret", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, userId.String(), decode(t, resp.Body)["data"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	body = decode(t, resp.Body)
	assert.Equal(t, "failed to load", body["message"])
	assert.NotContains(t, body["message"], "pq:")
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		Content string `json:"content" validate:"required,notblank,max=5"`
		Email   string `json:"email" validate:"omitempty,email"`
	}

	assert.NoError(t, ValidateRequest(request{Content: "héllo"}))

	err := ValidateRequest(request{Content: "   ", Email: "nope"})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
	assert.Contains(t, appErr.Message, "content is required")
	assert.Contains(t, appErr.Message, "email must be a valid email")

	err = ValidateRequest(request{Content: "toolong"})
	assert.Contains(t, err.Error(), "content must be at most 5 characters")
}
