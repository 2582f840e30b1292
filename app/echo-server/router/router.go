package router

import (
	"net/http"

	"storefront/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupUserRoutes(api *echo.Group, handler *rest.UserHandler, authRequired, adminOnly, selfOrAdmin echo.MiddlewareFunc) {
	users := api.Group("/users")

	users.POST("/register", handler.Register)
	users.GET("/verify/:token", handler.VerifyEmail)
	users.POST("/login", handler.Login)
	users.POST("/google-login", handler.GoogleLogin)

	users.POST("/logout", handler.Logout, authRequired)
	users.GET("/profile", handler.GetProfile, authRequired)
	users.PUT("/profile", handler.UpdateProfile, authRequired)
	users.PUT("/password", handler.ChangePassword, authRequired)
	users.GET("/customers/:id", handler.FetchCustomerDetails, authRequired, selfOrAdmin)

	users.GET("", handler.GetAllUsers, authRequired, adminOnly)
	users.PUT("/:id/role", handler.UpdateRole, authRequired, adminOnly)
}

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler, authRequired, adminOnly echo.MiddlewareFunc) {
	products := api.Group("/products")

	products.GET("", handler.GetAllProducts)
	products.GET("/:id", handler.GetProductByID)
	products.POST("", handler.CreateProduct, authRequired, adminOnly)
	products.PUT("/:id", handler.UpdateProduct, authRequired, adminOnly)
	products.PATCH("/:id/stock", handler.RestockProduct, authRequired, adminOnly)
	products.DELETE("/:id", handler.DeleteProduct, authRequired, adminOnly)
}

func SetupCartRoutes(api *echo.Group, handler *rest.CartHandler, authRequired echo.MiddlewareFunc) {
	cart := api.Group("/cart", authRequired)

	cart.GET("", handler.GetCart)
	cart.POST("", handler.AddItem)
	cart.PUT("/:productId", handler.SetQuantity)
	cart.DELETE("/:productId", handler.RemoveItem)
	cart.DELETE("", handler.ClearCart)
}

func SetOrdersRoutes(api *echo.Group, handler *rest.OrdersHandler, authRequired, adminOnly echo.MiddlewareFunc) {
	api.POST("/order/new", handler.PlaceOrder, authRequired)
	api.GET("/orders/all", handler.MyOrders, authRequired)
	api.GET("/orders/:id", handler.GetOrderByID, authRequired)

	api.GET("/admin/orders", handler.GetAllOrders, authRequired, adminOnly)
	api.PUT("/updateOrderStatus", handler.UpdateOrderStatus, authRequired, adminOnly)
	api.GET("/sales/monthly", handler.MonthlySales, authRequired, adminOnly)
}

// SetOpsRoutes exposes liveness, prometheus metrics and uploaded images.
func SetOpsRoutes(e *echo.Echo, uploadDir string) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/uploads", uploadDir)
}
