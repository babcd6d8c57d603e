package http

import "github.com/labstack/echo/v4"

// Handler mounts routes on the shared Echo instance. The server accepts
// one Handler; composite handlers fan registration out to several.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
