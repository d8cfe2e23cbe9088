// Package main runs JavaScript files against a bridge host.
//
// Arguments are files, directories (searched with --pattern) or doublestar
// globs. Scripts that are not UTF-8 are decoded from their detected charset.
//
//	# in-process host
//	./runner ./scripts
//
//	# remote host over gRPC
//	./runner --transport grpc --addr localhost:50061 'examples/**/*.js'
package main
