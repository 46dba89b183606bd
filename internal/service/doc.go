// Package service contains the use cases of the task backend. TaskService
// accepts recommendation requests, validates their payloads and hands them
// to the task runner; the handlers in this package execute those tasks with
// a generation.Generator.
//
// The API layer maps the sentinel errors declared here to HTTP status codes.
package service
