// Package server implements the MCP (Model Context Protocol) server for label
// measurement.
//
// The interactive command line flow asks the operator about one candidate at
// a time. The server exposes the same building blocks without the prompts,
// so an MCP client can show candidates to its user and drive the measurement
// itself.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - label_candidates: Candidate regions, largest first
//   - label_annotate: A candidate's rectangle drawn on the photograph
//   - label_best_fit: Rectangle, circle or ellipse closest to a candidate
//   - label_refine: Mask a confirmed region and re-extract
//   - label_scale: Unit conversion and the report line
//
// # Statelessness
//
// Masked regions are not remembered between calls. label_refine returns the
// confirmed rectangles as "exclude" and the inflated rectangles it painted as
// "masked"; passing "exclude" to later calls reproduces the same working
// image. Only decoded images are cached, by path, for the lifetime of the
// process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
