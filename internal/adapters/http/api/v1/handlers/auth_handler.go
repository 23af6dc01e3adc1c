package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iolowookere217/xdulist/config"
	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	"github.com/iolowookere217/xdulist/internal/usecase"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

// RefreshCookieName is the only transport for the refresh token. The access
// token travels as a bearer header and never as a cookie.
const RefreshCookieName = "refreshToken"

type AuthHandler struct {
	cfg     *config.Config
	service usecase.AuthService
}

func NewAuthHandler(cfg *config.Config, s usecase.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, service: s}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	req := new(registerRequest)
	if err := c.Bind(req); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	profile, err := h.service.Register(c.Request().Context(), requestIDFromCtx(c), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, usecase.ErrEmailTaken) {
			return res.Error(c, http.StatusConflict, "Email already registered")
		}
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	// No tokens until the email is verified.
	return res.JSON(c, http.StatusCreated, "Registration successful! Please check your email to verify your account.", map[string]interface{}{
		"email":                profile.Email,
		"requiresVerification": true,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	session, err := h.service.Login(c.Request().Context(), requestIDFromCtx(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrEmailNotVerified) {
			return res.ErrorWithData(c, http.StatusForbidden, "Please verify your email before logging in.", map[string]interface{}{
				"email":                req.Email,
				"requiresVerification": true,
			})
		}
		return res.Error(c, http.StatusUnauthorized, "Invalid email or password")
	}
	h.setRefreshCookie(c, session.RefreshToken, session.RefreshExpiresAt)
	return res.JSON(c, http.StatusOK, "Login successful", map[string]interface{}{
		"user":        session.User,
		"accessToken": session.AccessToken,
	})
}

func (h *AuthHandler) Google(c echo.Context) error {
	profile := usecase.GoogleProfile{}
	if err := c.Bind(&profile); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	if profile.GoogleID == "" || profile.Email == "" {
		return res.Error(c, http.StatusBadRequest, "Google ID and email are required")
	}
	session, err := h.service.GoogleAuth(c.Request().Context(), requestIDFromCtx(c), profile)
	if err != nil {
		return res.Error(c, http.StatusUnauthorized, "Google authentication failed")
	}
	h.setRefreshCookie(c, session.RefreshToken, session.RefreshExpiresAt)
	return res.JSON(c, http.StatusOK, "Google authentication successful", map[string]interface{}{
		"user":        session.User,
		"accessToken": session.AccessToken,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(RefreshCookieName); err == nil {
		raw = cookie.Value
	}
	if err := h.service.Logout(c.Request().Context(), requestIDFromCtx(c), raw); err != nil {
		return res.Error(c, http.StatusInternalServerError, "logout failed")
	}
	h.clearRefreshCookie(c)
	return res.JSON(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return res.Error(c, http.StatusUnauthorized, "Refresh token not provided")
	}
	session, err := h.service.Refresh(c.Request().Context(), requestIDFromCtx(c), cookie.Value)
	if err != nil {
		// Unknown, expired and already-rotated tokens are indistinguishable
		// here on purpose.
		return res.Error(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}
	h.setRefreshCookie(c, session.RefreshToken, session.RefreshExpiresAt)
	return res.JSON(c, http.StatusOK, "Token refreshed successfully", map[string]interface{}{
		"accessToken": session.AccessToken,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	profile, err := h.service.Me(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusUnauthorized, "User not found")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"user": profile})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.Param("token")
	session, err := h.service.VerifyEmail(c.Request().Context(), requestIDFromCtx(c), token)
	if err != nil {
		return res.Error(c, http.StatusUnauthorized, "Invalid or expired verification token")
	}
	h.setRefreshCookie(c, session.RefreshToken, session.RefreshExpiresAt)
	return res.JSON(c, http.StatusOK, "Email verified successfully! You are now logged in.", map[string]interface{}{
		"user":        session.User,
		"accessToken": session.AccessToken,
	})
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	req := new(resendVerificationRequest)
	if err := c.Bind(req); err != nil || req.Email == "" {
		return res.Error(c, http.StatusBadRequest, "Email is required")
	}
	if err := h.service.ResendVerification(c.Request().Context(), requestIDFromCtx(c), req.Email); err != nil {
		if errors.Is(err, usecase.ErrAlreadyVerified) {
			return res.Error(c, http.StatusBadRequest, "Email is already verified")
		}
		return res.Error(c, http.StatusNotFound, "User not found")
	}
	return res.JSON(c, http.StatusOK, "Verification email sent! Please check your inbox.", map[string]interface{}{
		"email": req.Email,
	})
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.AppEnv != "local",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.AppEnv != "local",
		SameSite: http.SameSiteStrictMode,
	})
}

func requestIDFromCtx(c echo.Context) string {
	if reqID := c.Response().Header().Get(echo.HeaderXRequestID); reqID != "" {
		return reqID
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
