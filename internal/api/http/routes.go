package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
	"github.com/i474232898/air-quality-ingest/internal/scheduler"
)

var validate = validator.New()

// defaultReadingsLimit caps /readings when no limit is given; it is also the
// largest limit accepted.
const (
	defaultReadingsLimit = 5000
	readingsLimitRule    = "min=1,max=5000"
)

// ReadingService is the read side of the store.
type ReadingService interface {
	Readings(ctx context.Context, from, to time.Time, limit int) ([]airquality.Reading, error)
	Summary(ctx context.Context, from, to time.Time) (airquality.Summary, error)
}

// RunTrigger starts an ingestion run unless one is already active.
type RunTrigger interface {
	Trigger(ctx context.Context) (airquality.IngestionRun, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. registry may be
// nil, in which case /metrics is not mounted.
func RegisterRoutes(app *fiber.App, readings ReadingService, trigger RunTrigger, registry *prometheus.Registry) {
	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/readings", func(c *fiber.Ctx) error {
		var req readingsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		out, err := readings.Readings(c.UserContext(), req.From, req.To, req.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch readings")
		}
		if out == nil {
			out = []airquality.Reading{}
		}

		return c.JSON(fiber.Map{
			"from":     req.From,
			"to":       req.To,
			"limit":    req.Limit,
			"count":    len(out),
			"readings": out,
		})
	})

	v1.Get("/readings/summary", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := readings.Summary(c.UserContext(), req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to summarize readings")
		}
		return c.JSON(summary)
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		run, err := trigger.Trigger(c.UserContext())
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.Status(runStatusCode(err)).JSON(newRunResponse(run, err))
	})
}

func runStatusCode(err error) int {
	var fetchErr *airquality.FetchError
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fetchErr):
		return fiber.StatusBadGateway
	default:
		// schema, session and cancellation failures
		return fiber.StatusInternalServerError
	}
}

// runResponse is the JSON run report.
type runResponse struct {
	airquality.IngestionRun
	Errors []string `json:"errors,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func newRunResponse(run airquality.IngestionRun, err error) runResponse {
	resp := runResponse{IngestionRun: run}
	for _, e := range run.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// rangeQuery holds query parameters for the readings endpoints.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return validate.Struct(q)
}

// readingsQuery adds the row cap to rangeQuery.
type readingsQuery struct {
	rangeQuery
	Limit int
}

func (q *readingsQuery) bind(c *fiber.Ctx) error {
	if err := q.rangeQuery.bind(c); err != nil {
		return err
	}

	q.Limit = defaultReadingsLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	if err := validate.Var(q.Limit, readingsLimitRule); err != nil {
		return fmt.Errorf("limit must be between 1 and %d", defaultReadingsLimit)
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
