package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Envelope is the standard API response body.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// OKMsg wraps data in a success envelope with a message.
func OKMsg(message string, data interface{}) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// EchoErrorHandler returns an echo HTTPErrorHandler that renders *apperr.Error
// values as the failure envelope. Store errors not recognized as domain
// violations surface as a generic 500 with no internal detail.
func EchoErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			status := HTTPStatus(appErr.Kind)
			if status >= http.StatusInternalServerError {
				logger.Error().Err(appErr.Err).Str("kind", string(appErr.Kind)).Msg("internal error")
				_ = c.JSON(status, Envelope{Success: false, Message: "unexpected error", Code: string(KindInternal)})
				return
			}
			_ = c.JSON(status, Envelope{Success: false, Message: appErr.Message, Code: string(appErr.Kind)})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, Envelope{Success: false, Message: msg})
			return
		}

		logger.Error().Err(err).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, Envelope{Success: false, Message: "unexpected error", Code: string(KindInternal)})
	}
}
