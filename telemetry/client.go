package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName         = "lowering"
	instrumentationName = "github.com/colorfulnotion/lowering"
)

// Tracer returns the tracer code generation spans are started from. Until a
// client connects it is the global no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Client manages the lifecycle of the process-wide trace exporter.
type Client struct {
	endpoint string
	provider *sdktrace.TracerProvider
	disabled bool // if true, Connect and Close do nothing
}

// NewNoOpClient creates a disabled client; spans go to the no-op tracer.
func NewNoOpClient() *Client {
	return &Client{disabled: true}
}

// NewClient builds a client exporting spans over OTLP/HTTP to endpoint (host:port).
func NewClient(endpoint string) *Client {
	return &Client{endpoint: endpoint}
}

func (c *Client) Enabled() bool { return !c.disabled }

// Connect creates the exporter and installs the provider globally.
func (c *Client) Connect(ctx context.Context) error {
	if c.disabled {
		return nil
	}
	if c.provider != nil {
		return fmt.Errorf("telemetry client already connected to %s", c.endpoint)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(c.endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter for %s: %w", c.endpoint, err)
	}
	c.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	otel.SetTracerProvider(c.provider)
	return nil
}

// Close flushes pending spans and shuts the provider down.
func (c *Client) Close(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	err := c.provider.Shutdown(ctx)
	c.provider = nil
	if err != nil {
		return fmt.Errorf("failed to shut down telemetry for %s: %w", c.endpoint, err)
	}
	return nil
}
