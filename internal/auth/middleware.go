package auth

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	MessageUnauthorized   = "Não autorizado"
	MessageSessionInvalid = "Sessão inválida"
)

// UserIDKey is the fiber locals key holding the verified user id.
const UserIDKey = "userID"

const tokenKey = "jwt"

// RequireAuth rejects requests without a valid bearer token. On success the
// token subject is stored under UserIDKey and nothing else from the token is
// exposed to handlers.
func (m *TokenManager) RequireAuth() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     m.secret,
		SigningMethod:  signingMethod,
		Claims:         &Claims{},
		ContextKey:     tokenKey,
		TokenLookup:    "header:" + fiber.HeaderAuthorization,
		AuthScheme:     "Bearer",
		SuccessHandler: storeSubject,
		ErrorHandler:   rejectToken,
	})
}

func storeSubject(c *fiber.Ctx) error {
	token, ok := c.Locals(tokenKey).(*jwt.Token)
	if !ok || !token.Valid {
		return rejectToken(c, ErrInvalidToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return rejectToken(c, ErrInvalidToken)
	}

	c.Locals(UserIDKey, claims.Subject)
	return c.Next()
}

func rejectToken(c *fiber.Ctx, err error) error {
	msg := MessageUnauthorized
	if Classify(err) == ErrExpiredToken {
		msg = MessageSessionInvalid
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"mensagem": msg})
}

// UserIDFromCtx returns the user id stored by RequireAuth.
func UserIDFromCtx(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(UserIDKey).(string)
	return id, ok && id != ""
}
