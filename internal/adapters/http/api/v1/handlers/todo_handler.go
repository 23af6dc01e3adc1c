package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	"github.com/iolowookere217/xdulist/internal/usecase"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

type TodoHandler struct {
	service usecase.TodoService
}

func NewTodoHandler(s usecase.TodoService) *TodoHandler { return &TodoHandler{service: s} }

func (h *TodoHandler) Create(c echo.Context) error {
	in := usecase.TodoInput{}
	if err := c.Bind(&in); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	todo, err := h.service.Create(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), in)
	if err != nil {
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	return res.JSON(c, http.StatusCreated, "Todo created", map[string]interface{}{"todo": todo})
}

func (h *TodoHandler) Get(c echo.Context) error {
	todo, err := h.service.Get(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id"))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "Todo not found")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"todo": todo})
}

func (h *TodoHandler) Summary(c echo.Context) error {
	period := c.QueryParam("period")
	if period == "" {
		period = "day"
	}
	summary, err := h.service.Summary(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), period)
	if err != nil {
		return res.Error(c, http.StatusInternalServerError, "failed to build summary")
	}
	return res.JSON(c, http.StatusOK, "", summary)
}

func (h *TodoHandler) List(c echo.Context) error {
	todos, err := h.service.List(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusInternalServerError, "failed to list todos")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"todos": todos})
}

func (h *TodoHandler) Update(c echo.Context) error {
	in := usecase.TodoInput{}
	if err := c.Bind(&in); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	todo, err := h.service.Update(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id"), in)
	if err != nil {
		if errors.Is(err, usecase.ErrTodoNotFound) {
			return res.Error(c, http.StatusNotFound, "Todo not found")
		}
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	return res.JSON(c, http.StatusOK, "Todo updated", map[string]interface{}{"todo": todo})
}

func (h *TodoHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id")); err != nil {
		return res.Error(c, http.StatusNotFound, "Todo not found")
	}
	return res.JSON(c, http.StatusOK, "Todo deleted", nil)
}

func (h *TodoHandler) Complete(c echo.Context) error {
	todo, err := h.service.Complete(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id"))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "Todo not found")
	}
	return res.JSON(c, http.StatusOK, "Todo completed", map[string]interface{}{"todo": todo})
}
