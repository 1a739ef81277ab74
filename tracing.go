package nctx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startSpan opens a span when a tracer is configured. The returned func ends
// it, recording err.
func (c *Context) startSpan(ctx context.Context, name string, reg *Registry, deep bool) (context.Context, func(error)) {
	if c.cfg.tracer == nil {
		return ctx, func(error) {}
	}
	attrs := []attribute.KeyValue{
		attribute.String("nctx.context", c.name),
		attribute.String("nctx.registry_id", reg.ID()),
		attribute.Int("nctx.depth", reg.Depth()),
	}
	if parent := reg.Parent(); parent != nil {
		attrs = append(attrs,
			attribute.String("nctx.parent_id", parent.ID()),
			attribute.Bool("nctx.deep", deep),
		)
	}
	ctx, span := c.cfg.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
