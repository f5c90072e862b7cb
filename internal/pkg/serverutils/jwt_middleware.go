package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID   = "user_id"
	LocalVendorID = "vendor_id"
	LocalRole     = "role"

	RoleAdmin = "admin"
)

// Claims is the identity carried by an access token. Every assistant request
// is scoped to the vendor in the token.
type Claims struct {
	UserID   string
	VendorID uuid.UUID
	Role     string
}

// ParseToken verifies an HMAC-signed token and extracts its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	vendorStr, _ := mapClaims["vendor_id"].(string)
	vendorID, err := uuid.Parse(vendorStr)
	if err != nil {
		return nil, errors.New("token missing vendor_id")
	}
	userID, _ := mapClaims["user_id"].(string)
	role, _ := mapClaims["role"].(string)

	return &Claims{UserID: userID, VendorID: vendorID, Role: role}, nil
}

// BearerToken reads the token from the Authorization header, falling back to
// the `token` query parameter browsers use for websocket handshakes.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing token"))
		}

		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, err.Error()))
		}

		ctx.Locals(LocalUserID, claims.UserID)
		ctx.Locals(LocalVendorID, claims.VendorID)
		ctx.Locals(LocalRole, claims.Role)
		return ctx.Next()
	}
}

// AdminMiddleware must run after JwtMiddleware.
func AdminMiddleware(ctx *fiber.Ctx) error {
	role, _ := ctx.Locals(LocalRole).(string)
	if role != RoleAdmin {
		return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Access denied: admin role required"))
	}
	return ctx.Next()
}

// VendorID returns the vendor set by JwtMiddleware.
func VendorID(ctx *fiber.Ctx) uuid.UUID {
	id, _ := ctx.Locals(LocalVendorID).(uuid.UUID)
	return id
}

func UserID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(LocalUserID).(string)
	return id
}
