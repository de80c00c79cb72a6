package httpmiddleware

import (
	"github.com/kinkando/family-task-service/pkg/generator"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/labstack/echo/v4"
)

const (
	RequestIDHeader     string = "X-Request-ID"
	CorrelationIDHeader string = "X-Correlation-ID"
)

// RequestID tags the request with a request id and a correlation id. The correlation id is taken
// from the caller when present so that a client retry and its refresh sub-call log under one id.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, res, ctx := c.Request(), c.Response(), c.Request().Context()
		requestID := req.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = generator.UUID()
		}
		correlationID := req.Header.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = requestID
		}

		res.Header().Set(RequestIDHeader, requestID)
		res.Header().Set(CorrelationIDHeader, correlationID)
		c.Set("requestID", requestID)
		c.Set("correlationID", correlationID)

		ctx = logger.WithRequestID(ctx, requestID)
		ctx = logger.WithCorrelationID(ctx, correlationID)
		*req = *req.WithContext(ctx)
		return next(c)
	}
}
