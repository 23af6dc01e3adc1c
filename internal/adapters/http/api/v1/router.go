package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/iolowookere217/xdulist/internal/adapters/http/api/v1/handlers"
	mw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
)

type Router struct {
	auth          *handlers.AuthHandler
	users         *handlers.UserHandler
	expenses      *handlers.ExpenseHandler
	todos         *handlers.TodoHandler
	subscriptions *handlers.SubscriptionHandler
	authMW        *mw.AuthMiddleware
}

func NewRouter(auth *handlers.AuthHandler, users *handlers.UserHandler, expenses *handlers.ExpenseHandler, todos *handlers.TodoHandler, subscriptions *handlers.SubscriptionHandler, authMW *mw.AuthMiddleware) *Router {
	return &Router{auth: auth, users: users, expenses: expenses, todos: todos, subscriptions: subscriptions, authMW: authMW}
}

func (r *Router) Register(g *echo.Group) {
	auth := g.Group("/auth")
	auth.POST("/register", r.auth.Register)
	auth.POST("/login", r.auth.Login)
	auth.POST("/google", r.auth.Google)
	auth.POST("/refresh", r.auth.Refresh)
	auth.GET("/verify-email/:token", r.auth.VerifyEmail)
	auth.POST("/resend-verification", r.auth.ResendVerification)
	auth.POST("/logout", r.auth.Logout, r.authMW.Require)
	auth.GET("/me", r.auth.Me, r.authMW.Require)

	users := g.Group("/users", r.authMW.Require)
	users.GET("/profile", r.users.Profile)
	users.PUT("/profile", r.users.UpdateProfile)
	users.PUT("/password", r.users.ChangePassword)

	expenses := g.Group("/expenses", r.authMW.Require)
	expenses.POST("", r.expenses.Create)
	expenses.GET("", r.expenses.List)
	expenses.GET("/analytics/summary", r.expenses.Summary)
	expenses.GET("/ai-insights", r.expenses.Insights, mw.RequirePremium)
	expenses.POST("/scan-receipt", r.expenses.ScanReceipt)
	expenses.POST("/parse-voice", r.expenses.ParseVoice)
	expenses.GET("/:id", r.expenses.Get)
	expenses.PUT("/:id", r.expenses.Update)
	expenses.DELETE("/:id", r.expenses.Delete)

	todos := g.Group("/todos", r.authMW.Require)
	todos.POST("", r.todos.Create)
	todos.GET("", r.todos.List)
	todos.GET("/summary", r.todos.Summary)
	todos.GET("/:id", r.todos.Get)
	todos.PUT("/:id", r.todos.Update)
	todos.DELETE("/:id", r.todos.Delete)
	todos.PATCH("/:id/complete", r.todos.Complete)

	subscription := g.Group("/subscription", r.authMW.Require)
	subscription.GET("", r.subscriptions.Get)
	subscription.POST("/upgrade", r.subscriptions.Upgrade)
}
