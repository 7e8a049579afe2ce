package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SecondList/EcommerceAPI/internal/handlers"
	"github.com/SecondList/EcommerceAPI/internal/jwtmiddleware"
)

type Deps struct {
	AuthHandler     *handlers.AuthHandler
	CheckoutHandler *handlers.CheckoutHandler
	JWTSecret       []byte
	Registry        *prometheus.Registry
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	if d.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")

	users := api.Group("/users")
	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refresh-token", d.AuthHandler.RefreshToken)
	users.POST("/logout", d.AuthHandler.Logout)

	authed := api.Group("", jwtmiddleware.BearerAuth(d.JWTSecret))
	authed.POST("/checkout", d.CheckoutHandler.PostCheckout)
	authed.GET("/orders", d.CheckoutHandler.GetOrders)
}
