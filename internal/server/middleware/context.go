package middleware

import (
	"github.com/labstack/echo/v4"
)

// AppState holds the shared dependencies handlers draw on.
type AppState struct {
	ArtifactsRoot string
}

// AppContext wraps the echo context with application state.
type AppContext struct {
	echo.Context
	App *AppState
}

// AppContextMiddleware injects the application state into every request.
func AppContextMiddleware(state *AppState) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: state})
		}
	}
}
