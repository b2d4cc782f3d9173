package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter for easier use
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new counter metric
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps an OTel histogram for easier use
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a new histogram metric
func NewHistogram(opts MetricOpts, boundaries ...float64) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(boundaries...))
	}

	histogram, err := GetMeter().Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	if h == nil {
		return
	}
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Instruments are the service-level metrics
type Instruments struct {
	AuthorizationDenials *Counter
	CapacityRejections   *Counter
	LifecycleTransitions *Counter
	HTTPRequestDuration  *Histogram
}

var (
	instruments     *Instruments
	instrumentsOnce sync.Once
)

// Metrics returns the process-wide instruments, created on first use against the current meter
func Metrics() *Instruments {
	instrumentsOnce.Do(func() {
		instruments = &Instruments{}
		instruments.AuthorizationDenials, _ = NewCounter(MetricOpts{
			Name:        "tenancy.authorization.denials",
			Description: "Requests denied by the scope guard",
			Unit:        "{request}",
		})
		instruments.CapacityRejections, _ = NewCounter(MetricOpts{
			Name:        "attendees.capacity.rejections",
			Description: "Registrations rejected because the event was fully booked",
			Unit:        "{registration}",
		})
		instruments.LifecycleTransitions, _ = NewCounter(MetricOpts{
			Name:        "lifecycle.transitions",
			Description: "Soft-delete lifecycle transitions applied",
			Unit:        "{transition}",
		})
		instruments.HTTPRequestDuration, _ = NewHistogram(MetricOpts{
			Name:        "http.server.request.duration",
			Description: "HTTP request latency",
			Unit:        "s",
		}, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5)
	})
	return instruments
}

// Common metric attribute keys
const (
	AttrMethod         = "http.request.method"
	AttrRoute          = "http.route"
	AttrStatusCode     = "http.response.status_code"
	AttrReason         = "tenancy.denial.reason"
	AttrEntity         = "lifecycle.entity"
	AttrTransition     = "lifecycle.transition"
	AttrOrganizationID = "organization.id"
	AttrEventID        = "event.id"
)

func MethodAttr(method string) attribute.KeyValue {
	return attribute.String(AttrMethod, method)
}

func RouteAttr(route string) attribute.KeyValue {
	return attribute.String(AttrRoute, route)
}

func StatusCodeAttr(code int) attribute.KeyValue {
	return attribute.Int(AttrStatusCode, code)
}

func ReasonAttr(reason string) attribute.KeyValue {
	return attribute.String(AttrReason, reason)
}

func EntityAttr(entity string) attribute.KeyValue {
	return attribute.String(AttrEntity, entity)
}

func TransitionAttr(transition string) attribute.KeyValue {
	return attribute.String(AttrTransition, transition)
}

func OrganizationIDAttr(id int64) attribute.KeyValue {
	return attribute.Int64(AttrOrganizationID, id)
}

func EventIDAttr(id int64) attribute.KeyValue {
	return attribute.Int64(AttrEventID, id)
}
