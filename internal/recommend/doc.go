// Package recommend drives one "generate a recommendation" interaction: it
// submits the request, follows the resulting task with a poller and keeps an
// explicit view state that renderers subscribe to.
//
// Lock order is control lock, then poller lock, then state lock. Poller
// callbacks arrive holding the poller lock, so nothing here calls into the
// poller while holding the state lock.
package recommend
