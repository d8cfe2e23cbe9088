/*
Package tracing provides lightweight spans for the bridge and its host.

# Overview

Spans cover flushes, binding invocations and host round trips. A trace id
started on the scripting side travels with every wire envelope, so the host
process logs its work under the same trace as the call site that forced it.

# Usage

	tracer := tracing.New("bridge", logger.Logger)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "flush")
	span.SetTag("records", "3")
	err := deliver(ctx)
	tracer.End(span, err)

	// host side
	ctx = tracing.WithTraceID(ctx, tracing.TraceID(env.TraceID))

# Trace Format

Over HTTP and gRPC the usual headers are used:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation
*/
package tracing
