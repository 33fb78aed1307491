package handler // handler defines http handlers

import (
	"context"  // context bounds downstream calls
	"errors"   // errors provides the sentinel used by getUserID
	"strconv"  // strconv formats numeric subjects
	"strings"  // strings trims path parameters
	"time"     // time sets call timeouts

	"github.com/labstack/echo/v4" // echo defines request context types
)

// callTimeout bounds storage and broker calls made while serving a request.
const callTimeout = 3 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the JWT subject stored by the JWT middleware.  Numeric
// subjects arrive as float64 from jwt.MapClaims and are formatted without
// a fractional part.
func getUserID(c echo.Context) (string, error) {
	switch t := c.Get("user_id").(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	}
	return "", errNoUser
}

// tableParam returns the trimmed :id path parameter.
func tableParam(c echo.Context) string {
	return strings.TrimSpace(c.Param("id"))
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), callTimeout)
}
