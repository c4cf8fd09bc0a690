package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var errNoIdentity = errors.New("token carries no usable identity")

// Protected requires a bearer token signed with secret (HS256).
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"error": "Missing or malformed JWT", "code": "UNAUTHORIZED"})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"error": "Invalid or expired JWT", "code": "UNAUTHORIZED"})
}

// Identity returns the user id and role from the verified token.
func Identity(c *fiber.Ctx) (uuid.UUID, string, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, "", errNoIdentity
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errNoIdentity
	}
	rawID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil || role == "" {
		return uuid.Nil, "", errNoIdentity
	}
	return id, role, nil
}

func RolesRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, role, err := Identity(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
				"code":  "UNAUTHORIZED",
			})
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: insufficient role",
			"code":  "FORBIDDEN",
		})
	}
}

func AdminRequired() fiber.Handler {
	return RolesRequired("admin")
}
