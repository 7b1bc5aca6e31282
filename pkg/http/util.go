package http

import (
	"time"

	"github.com/labstack/echo/v4"

	xutil "PQAnalyzer/pkg/util"
)

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryFloat reads a float query parameter, falling back to def.
func QueryFloat(c echo.Context, name string, def float64) float64 {
	return xutil.ParseFloatDefault(c.QueryParam(name), def)
}

// QueryTime reads an RFC3339 or unix-seconds query parameter.
func QueryTime(c echo.Context, name string, def time.Time) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(name), def)
}
