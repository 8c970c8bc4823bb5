// Package ws implements the WebSocket hub for the printwatch dashboard.
//
// Hub manages a set of connected clients and broadcasts the recent alert
// list to all of them on a configurable interval (default 5s in production).
//
// New(alerts, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// alerts immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "alerts",
//	  "alerts": [ /* same schema as GET /api/v1/alerts */ ],
//	  "generated_at": "2026-03-01T12:00:00Z"
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. WebSocket endpoint is mounted at /ws/stream by the server.
package ws
