// Package http provides HTTP handlers and middleware for the bell engine API.
//
// The router exposes the following endpoints:
//   - GET /status: current engine snapshot including the resolved current and
//     next lesson, presence state, and the number of armed triggers.
//   - POST /schedule: imports a weekly schedule document. The body is the
//     interchange JSON produced by the mobile clients; an import replaces the
//     active schedule wholesale.
//   - GET /schedule: exports the persisted schedule document together with its
//     version and import metadata.
//   - POST /presence/events: feeds a geofence transition (enter or exit) into
//     the presence coordinator and reports whether the state changed.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
