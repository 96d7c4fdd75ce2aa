package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storynest/storynest/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	slog.DebugContext(c.Request().Context(), "bad request",
		slog.String("error", err.Error()),
		slog.String("module", "presenter"),
	)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "bad request",
		slog.String("error", msg),
		slog.String("module", "presenter"),
	)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func TooManyRequests(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
		slog.String("module", "presenter"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// Error maps a usecase error onto its HTTP status.
func Error(c echo.Context, err error) error {
	var validation domain.ValidationError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &validation):
		return BadRequest(c, validation)
	case errors.Is(err, domain.ErrUnauthorized):
		return Unauthorized(c)
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	case errors.As(err, &upstream):
		slog.WarnContext(c.Request().Context(), "upstream failure",
			slog.String("service", upstream.Service),
			slog.Int("status", upstream.Status),
			slog.String("module", "presenter"),
		)
		status := upstream.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return c.JSON(status, errorResponse{Error: upstream.Error()})
	case errors.Is(err, domain.ErrCancelled):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		slog.WarnContext(c.Request().Context(), "store unavailable",
			slog.String("error", err.Error()),
			slog.String("module", "presenter"),
		)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
	default:
		return InternalError(c, err)
	}
}
