// Package http exposes the plan, chat and account services as a JSON API.
//
// Public routes accept an optional session (Authorization: Bearer <token> or
// the session_token cookie). Every request is tied to an anonymous client key
// carried in the hangr_client cookie; discovery filters and location fixes
// are remembered per client key.
//
//   - GET /health
//   - POST /users, POST /sessions, DELETE /sessions/current, GET /me, PUT /me
//   - GET /plans?lat&lng&emoji&date&radius_km: ranked discovery list
//   - POST /plans, GET /plans/{id}
//   - GET, POST /plans/{id}/attendees
//   - GET, POST /plans/{id}/chat/messages and GET /plans/{id}/chat/stream (websocket)
//   - GET /plans/{id}/share.png?width=150, GET /plans/{id}/calendar.ics
//   - GET /emojis, GET /filters, PUT /filters
//   - GET /location/options, POST /location
//
// Request/response DTOs live alongside their handlers.
package http
