package factory

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// NewModuleLogger returns a field logger tagged with the owning module.
func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.StandardLogger().WithField("module", module)
}

// LoggerWithContext attaches the request id from the echo context, when
// present, so log lines from one request can be correlated.
func LoggerWithContext(logger logrus.FieldLogger, c echo.Context) logrus.FieldLogger {
	if c == nil {
		return logger
	}

	requestID := c.Request().Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	if requestID == "" {
		return logger
	}

	return logger.WithField("request_id", requestID)
}
