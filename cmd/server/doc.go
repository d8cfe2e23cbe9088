// Package main runs a bridge host process.
//
// The host keeps one mirror per execution context and serves the wire
// protocol on three front-ends:
//
//	POST /v1/exchange   one envelope per request
//	GET  /v1/ws         a WebSocket carrying envelopes both ways
//	gRPC Exchange       on GRPC_PORT
//
// /healthz and /metrics are served next to them.
//
// Configuration:
//   - Environment variables (PORT, GRPC_PORT, LOG_LEVEL, ...)
//   - An optional TOML or YAML file given with -c, below the environment
//   - CLI flags, above both
//
// Usage:
//
//	# Production mode
//	./server --port 8000 --grpc-port 50061
//
//	# Development mode (colored logs, debug level)
//	./server --dev
package main
