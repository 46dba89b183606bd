// Package task defines the asynchronous AI task record shared by the backend
// and its polling clients, and the server-side machinery that executes tasks
// in the background: a bounded queue, a worker runner and a TTL sweeper.
//
// A task moves through pending, running and then exactly one of completed or
// failed. Clients only ever observe it through its status record.
package task
