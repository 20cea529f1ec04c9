// Package models provides the core data structures shared by the webhook receiver, the stores and the command surface.
package models

// Request represents an incoming client request containing a body and associated headers.
type Request struct {
	Body    string
	Headers map[string]string
}

// Response defines the structure for an HTTP response containing a body, headers, and a status code.
// Report carries an optional structured result (e.g. a dispatch report) rendered alongside the message.
type Response struct {
	Body       string
	Headers    map[string]string
	StatusCode int
	Report     any
}
