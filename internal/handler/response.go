package handler

import (
	"errors"
	"fmt"
	"net/http"
	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

// errUnauthorized carries the same message as the auth middleware's denial.
var errUnauthorized = errors.New("Not Authorized")

func statusOf(err error) int {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {success:false} envelope. Internal failures are
// returned to echo as well so the request logger records the cause.
func respondError(c echo.Context, err error) error {
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	if jsonErr := c.JSON(status, &dto.Response{Success: false, Message: message}); jsonErr != nil {
		return jsonErr
	}
	if status >= http.StatusInternalServerError {
		return err
	}
	return nil
}

func bindError(err error) error {
	return fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidInput, err)
}

func currentUser(c echo.Context) (string, error) {
	id := middleware.UserID(c)
	if id == "" {
		return "", errUnauthorized
	}
	return id, nil
}
