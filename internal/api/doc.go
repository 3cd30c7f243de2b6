// Package api implements the read-only HTTP status API for Gray Logic Grow.
//
// Endpoints (all under /api/v1):
//   - GET /health: component health and version
//   - GET /schedule: pending scheduler entries in dispatch order
//   - GET /plan: last plan result and the next planned run
//   - GET /logs: recent action log rows, filterable by entity and command
//   - GET /entities: the entity ids receiving log rows
//   - GET /stats: dispatch counters
//
// The API never drives hardware. Manual commands go through the CLI or the
// MQTT command topic.
package api
