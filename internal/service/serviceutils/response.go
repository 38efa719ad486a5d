package serviceutils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/fluentexcel/pkg/fluentexcel"
)

type GenericResponse struct {
	Success bool
	Message string
	Data    interface{}
	Error   string
}

func ResponseSuccess(c echo.Context, code int, msg string, data interface{}) error {
	return c.JSON(code, GenericResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func ResponseError(c echo.Context, code int, msg string, err error) error {
	resp := GenericResponse{
		Success: false,
		Message: msg,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(code, resp)
}

// StatusFromError maps spreadsheet engine failures to HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, fluentexcel.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, fluentexcel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fluentexcel.ErrValidation), errors.Is(err, fluentexcel.ErrTypeConversion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
