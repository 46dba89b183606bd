// Package client talks to the recommendation task API over HTTP. It submits
// itinerary and report tasks and fetches their status records, and is the
// Fetcher the poller uses in production.
package client
