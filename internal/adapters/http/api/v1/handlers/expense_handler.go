package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/usecase"
	res "github.com/iolowookere217/xdulist/pkg/http"
)

type ExpenseHandler struct {
	service usecase.ExpenseService
}

func NewExpenseHandler(s usecase.ExpenseService) *ExpenseHandler { return &ExpenseHandler{service: s} }

type parseVoiceRequest struct {
	Transcript string `json:"transcript"`
}

func (h *ExpenseHandler) Create(c echo.Context) error {
	in := usecase.ExpenseInput{}
	if err := c.Bind(&in); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	expense, err := h.service.Create(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), in)
	if err != nil {
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	return res.JSON(c, http.StatusCreated, "Expense created", map[string]interface{}{"expense": expense})
}

func (h *ExpenseHandler) List(c echo.Context) error {
	filter := repo.ExpenseFilter{Category: c.QueryParam("category")}
	if month := c.QueryParam("month"); month != "" {
		from, err := time.Parse("2006-01", month)
		if err != nil {
			return res.Error(c, http.StatusBadRequest, "month must be YYYY-MM")
		}
		filter.From = from
		filter.To = from.AddDate(0, 1, 0)
	}
	expenses, err := h.service.List(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), filter)
	if err != nil {
		return res.Error(c, http.StatusInternalServerError, "failed to list expenses")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"expenses": expenses})
}

func (h *ExpenseHandler) Get(c echo.Context) error {
	expense, err := h.service.Get(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id"))
	if err != nil {
		return res.Error(c, http.StatusNotFound, "Expense not found")
	}
	return res.JSON(c, http.StatusOK, "", map[string]interface{}{"expense": expense})
}

func (h *ExpenseHandler) Update(c echo.Context) error {
	in := usecase.ExpenseInput{}
	if err := c.Bind(&in); err != nil {
		return res.Error(c, http.StatusBadRequest, "invalid payload")
	}
	expense, err := h.service.Update(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id"), in)
	if err != nil {
		if errors.Is(err, usecase.ErrExpenseNotFound) {
			return res.Error(c, http.StatusNotFound, "Expense not found")
		}
		return res.Error(c, http.StatusBadRequest, err.Error())
	}
	return res.JSON(c, http.StatusOK, "Expense updated", map[string]interface{}{"expense": expense})
}

func (h *ExpenseHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), c.Param("id")); err != nil {
		return res.Error(c, http.StatusNotFound, "Expense not found")
	}
	return res.JSON(c, http.StatusOK, "Expense deleted", nil)
}

func (h *ExpenseHandler) Summary(c echo.Context) error {
	month := time.Now().UTC()
	if m := c.QueryParam("month"); m != "" {
		parsed, err := time.Parse("2006-01", m)
		if err != nil {
			return res.Error(c, http.StatusBadRequest, "month must be YYYY-MM")
		}
		month = parsed
	}
	summary, err := h.service.Summary(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), month)
	if err != nil {
		return res.Error(c, http.StatusInternalServerError, "failed to build summary")
	}
	return res.JSON(c, http.StatusOK, "", summary)
}

func (h *ExpenseHandler) Insights(c echo.Context) error {
	insights, err := h.service.Insights(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c))
	if err != nil {
		return res.Error(c, http.StatusBadGateway, "Failed to generate insights")
	}
	message := ""
	if len(insights) == 0 {
		message = "Not enough data for insights. Add at least 5 expenses."
	}
	return res.JSON(c, http.StatusOK, message, map[string]interface{}{"insights": insights})
}

func (h *ExpenseHandler) ScanReceipt(c echo.Context) error {
	file, err := c.FormFile("receipt")
	if err != nil {
		return res.Error(c, http.StatusBadRequest, "receipt image is required")
	}
	src, err := file.Open()
	if err != nil {
		return res.Error(c, http.StatusBadRequest, "could not read receipt image")
	}
	defer src.Close()

	result, err := h.service.ScanReceipt(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), file.Filename, src)
	if err != nil {
		if errors.Is(err, usecase.ErrScanLimitReached) {
			return res.Error(c, http.StatusForbidden, "Monthly receipt scan limit reached. Upgrade to premium for unlimited scans.")
		}
		return res.Error(c, http.StatusBadGateway, "Failed to process receipt")
	}
	return res.JSON(c, http.StatusOK, "Receipt scanned", result)
}

func (h *ExpenseHandler) ParseVoice(c echo.Context) error {
	req := new(parseVoiceRequest)
	if err := c.Bind(req); err != nil || req.Transcript == "" {
		return res.Error(c, http.StatusBadRequest, "transcript is required")
	}
	draft, err := h.service.ParseVoice(c.Request().Context(), requestIDFromCtx(c), mw.UserID(c), req.Transcript)
	if err != nil {
		return res.Error(c, http.StatusBadGateway, "Failed to parse transcript")
	}
	return res.JSON(c, http.StatusOK, "", draft)
}
