// Package api exposes the RAG service over HTTP.
//
// Routes are declared with go-restful and described by an OpenAPI document
// served at /api/v1/openapi.json. Every request passes through the logging,
// panic recovery and per-client rate limit filters, and the container is
// wrapped in a CORS handler.
//
// Failures are mapped to status codes by StatusFor. Unclassified errors are
// reported as a generic 500 so internal detail never reaches the client.
package api
