package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	"github.com/iolowookere217/xdulist/internal/usecase"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

type SubscriptionHandler struct {
	service usecase.SubscriptionService
}

func NewSubscriptionHandler(s usecase.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: s}
}

func (h *SubscriptionHandler) Get(c echo.Context) error {
	info, err := h.service.Get(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "Subscription not found")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"subscription": info})
}

func (h *SubscriptionHandler) Upgrade(c echo.Context) error {
	info, err := h.service.Upgrade(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "Subscription not found")
	}
	return res.JSON(c, http.StatusOK, "Subscription upgraded to premium", map[string]interface{}{"subscription": info})
}
