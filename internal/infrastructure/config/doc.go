// Package config provides 12-factor configuration for the bridge and the host process.
//
// Values are layered: built-in defaults, then an optional TOML or YAML file,
// then environment variables.
//
// Configuration Sections:
//   - Server: host process listeners (HTTP/WebSocket, gRPC)
//   - Bridge: execution context policy (auto flush, host notification, sanitizing)
//   - Host: which host the bridge talks to and how (local, ws, grpc, http)
//   - Script: JavaScript runtime limits
//   - Logging: level, format and rotated file output
//   - RateLimit: per-IP rate limiting on the host server
//
// Example Usage:
//
//	cfg, err := config.LoadFile("webf.toml")
//	if err != nil {
//		return err
//	}
//	fmt.Printf("host transport %s at %s\n", cfg.Host.Transport, cfg.Host.Address)
//
// Environment Variables:
//   - PORT, HOST, GRPC_PORT
//   - BRIDGE_AUTO_FLUSH, BRIDGE_NOTIFY, BRIDGE_SANITIZE_HTML, VIEWPORT_WIDTH, VIEWPORT_HEIGHT
//   - HOST_TRANSPORT, HOST_ADDR, HOST_TIMEOUT, HOST_COMPRESS_THRESHOLD
//   - BREAKER_MAX_FAILURES, BREAKER_OPEN_TIMEOUT
//   - SCRIPT_TIMEOUT, SCRIPT_POOL_SIZE
//   - LOG_LEVEL, LOG_DEV, LOG_FILE
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
