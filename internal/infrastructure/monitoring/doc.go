/*
Package monitoring provides Prometheus metrics for the bridge and the host process.

# Overview

Metrics are registered on an injected prometheus.Registerer so that every
test and every host process owns its registry. A nil *Metrics is accepted by
all recording methods, which lets library packages take metrics optionally.

# Features

- Bridge metrics (records appended, notifications, flush size and latency)
- Binding invocation metrics (per method, per result)
- Async round trip metrics (pending gauge, settled counter)
- Collector metrics (cycles, swept objects, live handles)
- Host transport metrics (per transport and envelope kind)
- HTTP and WebSocket metrics for the host server

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "ws", "flush")
	// ... perform round trip ...
	timer.Stop("ok")
*/
package monitoring
