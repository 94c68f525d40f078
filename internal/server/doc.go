// Package server exposes the orchestration façade over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Request Surface
//
// [API] registers the JSON endpoints: starting and cancelling media and
// swarm jobs, swarm status snapshots, format probing, and history listing
// and deletion. Synchronous façade errors map onto status codes:
//
//	400 missing or malformed request fields
//	404 unknown job or record id
//	409 duplicate start for an id that is already running
//	429 upstream verification walls and local rate limiting
//	500 unclassified engine failures
//
// # Progress Subscriptions
//
// GET /ws/{channel} upgrades to a websocket and attaches the connection to
// the progress relay under that channel id (the job id for media jobs,
// swarm_<id> for swarm jobs). The subscriber receives each progress event
// as one JSON text message until the job reaches a terminal event or the
// client disconnects. Delivery is best-effort: a slow client gets events
// dropped, never a stalled fetch.
package server
