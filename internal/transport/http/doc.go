// Package http implements the HTTP handlers of the selector server. Handlers
// stay thin: they parse the request, call the selector service for the
// caller's session and format the response.
//
// # Surfaces
//
//	GET  /                          server-rendered selector page
//	POST /filters                   reconcile the posted form, 303 back to /
//	POST /filters/clear             reset every filter, 303 back to /
//	     /api/selector/...          JSON filter API and export downloads
//	GET  /ws                        live "view changed" events for the session
//	GET  /api/health...             health, readiness, liveness, version
//
// # Error Handling
//
// JSON endpoints answer failures with RFC 7807 problem documents built by
// the errors package:
//
//	{
//	    "type": "/errors/filter/unknown-field",
//	    "title": "Unknown Filter Field",
//	    "status": 404,
//	    "detail": "unknown filter field: \"colour\"",
//	    "instance": "/api/selector/selections/colour"
//	}
//
// Form posts re-render the page with the problem detail shown inline.
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// SelectorServiceInterface, and against the real service over fixture data.
package http
