package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	"github.com/iolowookere217/xdulist/internal/usecase"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

type UserHandler struct {
	service usecase.UserService
}

func NewUserHandler(s usecase.UserService) *UserHandler { return &UserHandler{service: s} }

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *UserHandler) Profile(c echo.Context) error {
	profile, err := h.service.Profile(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "User not found")
	}
	return res.JSON(c, http.StatusOK, "", profile)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	in := usecase.ProfileUpdate{}
	if err := c.Bind(&in); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	profile, err := h.service.UpdateProfile(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), in)
	if err != nil {
		return res.Error(c, http.StatusNotFound, "User not found")
	}
	return res.JSON(c, http.StatusOK, "Profile updated successfully", map[string]interface{}{"user": profile})
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	req := new(changePasswordRequest)
	if err := c.Bind(req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return res.Error(c, http.StatusBadRequest, "Current and new password are required")
	}
	err := h.service.ChangePassword(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, usecase.ErrWrongPassword) {
			return res.Error(c, http.StatusUnauthorized, "Current password is incorrect")
		}
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	return res.JSON(c, http.StatusOK, "Password changed successfully", nil)
}
