package api

import (
	xhttp "GapCast/pkg/http"

	"github.com/labstack/echo/v4"
)

// Routes groups the route registrars mounted on the shared Echo server.
type Routes struct {
	handlers []xhttp.Handler
}

func NewRoutes(hs ...xhttp.Handler) *Routes {
	return &Routes{handlers: hs}
}

func (r *Routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
