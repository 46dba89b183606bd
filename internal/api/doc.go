// Package api exposes the recommendation task backend over HTTP. It decodes
// and validates requests, calls the task service and maps service errors to
// status codes and safe messages.
package api
