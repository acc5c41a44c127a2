package httpclients

import (
	"context"
	"time"

	"modelgate/services/catalog-api/internal/infrastructure/logger"

	"resty.dev/v3"
)

type httpClientStartsAt struct{}

// NewClient returns a resty client with request latency logging attached.
func NewClient(clientName string) *resty.Client {
	client := resty.New()
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		ctx := context.WithValue(r.Context(), httpClientStartsAt{}, time.Now())
		r.SetContext(ctx)
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()
		startTime, _ := r.Request.Context().Value(httpClientStartsAt{}).(time.Time)

		log.Debug().
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("path", r.Request.RawRequest.URL.Path).
			Dur("latency", time.Since(startTime)).
			Msg("HTTP client request")
		return nil
	})
	return client
}
