// Package api provides the GeoControl HTTP REST API and live WebSocket stream.
//
// All routes live under /api/v1. Apart from /health and /auth, every route
// requires a bearer token issued by POST /auth, and the caller's role decides
// which operations are permitted:
//
//	viewer    read networks, gateways, sensors and measurements
//	operator  viewer + create, update and delete the hierarchy, store measurements
//	admin     operator + user management and the audit trail
//
// Errors are returned as {"code": <status>, "name": <kind>, "message": <text>}.
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
