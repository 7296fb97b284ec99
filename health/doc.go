// Package health models healthy, degraded and unhealthy states.
//
// The stream client reports one Status per websocket channel and aggregates
// them with Aggregate (worst wins). A Monitor combines the client with the
// event bridges for the CLI, and Handler exposes the aggregate over HTTP.
//
// Messages built from errors go through SanitizeMessage because connection
// errors echo the websocket URL, which embeds the API key.
package health
