// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers report domain events through.
type Recorder interface {
	RecordBoardCreated()
	RecordBoardDeleted()
	RecordElementsReplaced(count int)
	RecordCollaboratorChange(change string)
	RecordAssetUploaded(size int64)
}

type Collector struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	boardsCreated   prometheus.Counter
	boardsDeleted   prometheus.Counter
	elementWrites   prometheus.Counter
	elementsWritten prometheus.Histogram
	collaborators   *prometheus.CounterVec
	assetBytes      prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whiteboard_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whiteboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		boardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whiteboard_boards_created_total",
			Help: "Boards created.",
		}),
		boardsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whiteboard_boards_deleted_total",
			Help: "Boards deleted.",
		}),
		elementWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whiteboard_element_replacements_total",
			Help: "Whole-board element replacements.",
		}),
		elementsWritten: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "whiteboard_elements_per_replacement",
			Help:    "Number of elements written per replacement.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		collaborators: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whiteboard_collaborator_changes_total",
			Help: "Collaborator additions, role updates and removals.",
		}, []string{"change"}),
		assetBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whiteboard_asset_upload_bytes_total",
			Help: "Bytes of board assets uploaded.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.boardsCreated,
		c.boardsDeleted,
		c.elementWrites,
		c.elementsWritten,
		c.collaborators,
		c.assetBytes,
	)
	return c
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) RecordBoardCreated() {
	c.boardsCreated.Inc()
}

func (c *Collector) RecordBoardDeleted() {
	c.boardsDeleted.Inc()
}

func (c *Collector) RecordElementsReplaced(count int) {
	c.elementWrites.Inc()
	c.elementsWritten.Observe(float64(count))
}

func (c *Collector) RecordCollaboratorChange(change string) {
	c.collaborators.WithLabelValues(change).Inc()
}

func (c *Collector) RecordAssetUploaded(size int64) {
	c.assetBytes.Add(float64(size))
}

// Middleware records request count and latency labelled by the matched
// route pattern, so path ids do not explode cardinality.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := ctx.Route().Path
		if route == "" || route == "/" && ctx.Path() != "/" {
			route = "unmatched"
		}

		c.requests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Noop discards every event.
type Noop struct{}

func (Noop) RecordBoardCreated()             {}
func (Noop) RecordBoardDeleted()             {}
func (Noop) RecordElementsReplaced(int)      {}
func (Noop) RecordCollaboratorChange(string) {}
func (Noop) RecordAssetUploaded(int64)       {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
