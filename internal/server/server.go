// Package server implements the HTTP front end of the resolver.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/twpayne/go-geofeatures"
	"github.com/twpayne/go-geofeatures/internal/report"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofeatures",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofeatures",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})
)

// A Resolver resolves features at a coordinate.
type Resolver interface {
	ResolveFeatures(ctx context.Context, coord geofeatures.LatLon) (*geofeatures.Result, error)
}

// An APIError is a structured error response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(APIError{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// New returns a fiber app serving resolver.
func New(resolver Resolver, logger *slog.Logger, config Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		AppName:               "geofeatures",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(metricsMiddleware())

	startedAt := time.Now()
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).String(),
		})
	})
	app.Get("/metrics", metricsHandler())
	app.Get("/v1/features", featuresHandler(resolver, logger, config.RequestTimeout))
	return app
}

func featuresHandler(resolver Resolver, logger *slog.Logger, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return newError(c, fiber.StatusBadRequest, "bad_request", "lat must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return newError(c, fiber.StatusBadRequest, "bad_request", "lon must be a number")
		}
		coord := geofeatures.LatLon{Lat: lat, Lon: lon}
		if !coord.Valid() {
			return newError(c, fiber.StatusBadRequest, "bad_request", "lat must be in (-90, 90] and lon in [-180, 180)")
		}

		ctx := c.UserContext()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		switch result, err := resolver.ResolveFeatures(ctx, coord); {
		case errors.Is(err, geofeatures.ErrCoordinateOutOfDomain):
			return newError(c, fiber.StatusNotFound, "out_of_map", err.Error())
		case err != nil:
			logger.ErrorContext(ctx, "resolve features", "lat", lat, "lon", lon, "err", err)
			return newError(c, fiber.StatusInternalServerError, "internal_error", err.Error())
		default:
			return c.JSON(report.New(result))
		}
	}
}

func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		// Unmatched requests share one path label.
		if fiberErr := (*fiber.Error)(nil); errors.As(err, &fiberErr) {
			status = strconv.Itoa(fiberErr.Code)
			if fiberErr.Code == fiber.StatusNotFound || fiberErr.Code == fiber.StatusMethodNotAllowed {
				path = "unmatched"
			}
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

func metricsHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
