package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	"github.com/iolowookere217/xdulist/internal/tokenverify"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxTier   = "tier"
)

type AuthMiddleware struct {
	parser tokenverify.Parser
	users  repo.UserRepository
	now    func() time.Time
}

func NewAuthMiddleware(parser tokenverify.Parser, users repo.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{parser: parser, users: users, now: time.Now}
}

// Require gates a route on a valid bearer token whose subject still exists.
// Failures carry a reason the client interceptor keys off: only "expired" is
// worth a refresh attempt.
func (m *AuthMiddleware) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return res.ErrorWithReason(c, http.StatusUnauthorized, "No token provided", res.ReasonMissing)
		}
		result, err := tokenverify.Verify(m.parser, token, m.now)
		if err != nil {
			switch err {
			case tokenverify.ErrTokenExpired:
				return res.ErrorWithReason(c, http.StatusUnauthorized, "Token expired", res.ReasonExpired)
			default:
				return res.ErrorWithReason(c, http.StatusUnauthorized, "Invalid token", res.ReasonInvalid)
			}
		}
		if _, err := m.users.FindByID(c.Request().Context(), result.UserID); err != nil {
			return res.ErrorWithReason(c, http.StatusUnauthorized, "User no longer exists", res.ReasonUserGone)
		}
		c.Set(CtxUserID, result.UserID)
		c.Set(CtxEmail, result.Email)
		c.Set(CtxTier, result.Tier)
		return next(c)
	}
}

// Optional runs the same pipeline but any failure yields an anonymous context
// instead of a 401.
func (m *AuthMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return next(c)
		}
		result, err := tokenverify.Verify(m.parser, token, m.now)
		if err != nil {
			return next(c)
		}
		if _, err := m.users.FindByID(c.Request().Context(), result.UserID); err != nil {
			return next(c)
		}
		c.Set(CtxUserID, result.UserID)
		c.Set(CtxEmail, result.Email)
		c.Set(CtxTier, result.Tier)
		return next(c)
	}
}

// RequirePremium must run after Require.
func RequirePremium(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tier, _ := c.Get(CtxTier).(string)
		if tier != domain.TierPremium {
			return res.Error(c, http.StatusForbidden, "This feature requires a premium subscription")
		}
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func UserID(c echo.Context) string {
	id, _ := c.Get(CtxUserID).(string)
	return id
}
