package http

import "github.com/labstack/echo/v4"

// Response is the envelope every endpoint speaks: success flag, a human
// message, and the payload. Auth failures additionally carry a
// machine-readable Reason so clients can decide whether refreshing is
// worthwhile.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	ReasonMissing  = "missing"
	ReasonExpired  = "expired"
	ReasonInvalid  = "invalid"
	ReasonUserGone = "user_gone"
)

func JSON(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

func ErrorWithReason(c echo.Context, status int, message, reason string) error {
	return c.JSON(status, Response{Success: false, Message: message, Reason: reason})
}

func ErrorWithData(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: false, Message: message, Data: data})
}
