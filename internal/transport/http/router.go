package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/handlers"
	"github.com/spraylab/streetshop/internal/handlers/cart"
	"github.com/spraylab/streetshop/internal/ratelimit"
	"github.com/spraylab/streetshop/internal/service"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *handlers.OrderHandler
	WebhookHandler  *handlers.WebhookHandler
	AdminHandler    *handlers.AdminHandler
	ShippingHandler *handlers.ShippingHandler
	ProfileHandler  *handlers.ProfileHandler
	ServiceHandler  *service.TokenService
	AuthLimiter     *ratelimit.Limiter
	WebhookLimiter  *ratelimit.Limiter
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register, d.AuthLimiter.Middleware("register"))
	v1.POST("/login", d.AuthHandler.Login, d.AuthLimiter.Middleware("login"))
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/forgot-password", d.AuthHandler.ForgotPassword, d.AuthLimiter.Middleware("forgot"))
	v1.POST("/reset-password", d.AuthHandler.ResetPassword, d.AuthLimiter.Middleware("reset"))

	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/categories", d.ProductHandler.GetCategories)

	v1.POST("/shipping/rates", d.ShippingHandler.Rates)
	v1.GET("/shipping/areas", d.ShippingHandler.Areas)

	// Payment gateway callbacks. GET is the gateway's reachability check.
	v1.POST("/payment/webhook", d.WebhookHandler.HandleNotification, d.WebhookLimiter.Middleware("webhook"))
	v1.GET("/payment/webhook", d.WebhookHandler.Health)

	users := v1.Group("/users", d.ServiceHandler.AutoRefreshMiddleware)
	users.GET("/me", d.ProfileHandler.GetProfile)
	users.PATCH("/me", d.ProfileHandler.UpdateProfile)

	cartGroup := v1.Group("/cart", d.ServiceHandler.AutoRefreshMiddleware)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.DELETE("/:id", d.CartHandler.DeleteOneFromCart)
	cartGroup.DELETE("/:id/all", d.CartHandler.DeleteAllFromCart)

	ordersGroup := v1.Group("/orders", d.ServiceHandler.AutoRefreshMiddleware)
	ordersGroup.POST("", d.OrderHandler.Checkout)
	ordersGroup.GET("", d.OrderHandler.ListOrders)
	ordersGroup.GET("/:id", d.OrderHandler.GetOrder)
	ordersGroup.POST("/:id/cancel", d.OrderHandler.CancelOrder)

	// Sweep authenticates by shared secret, not by session.
	v1.POST("/orders/sweep", d.OrderHandler.Sweep)

	admin := v1.Group("/admin", d.ServiceHandler.AdminOnlyMiddleware)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.ProductHandler.CreateCategory)
	admin.GET("/orders", d.AdminHandler.ListOrders)
	admin.PATCH("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.PATCH("/users/:id", d.AdminHandler.UpdateUser)
	admin.DELETE("/users/:id", d.AdminHandler.DeleteUser)
}
