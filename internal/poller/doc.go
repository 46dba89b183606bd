// Package poller tracks one asynchronous recommendation task at a time and
// reports its progress to an observer.
//
// A Poller is started with a task ID issued by the backend. It checks the
// task's status on a timer whose delay grows linearly from Backoff.Base by
// Backoff.Step per attempt and is capped at Backoff.Max. Polling ends when the
// task completes or fails, when a status fetch fails, or when the poller is
// cancelled or restarted with another task.
//
// Every Start and Cancel advances a generation counter. Timer callbacks and
// fetch responses carry the generation they were issued under and are
// dropped if it is no longer current, so a superseded or cancelled task never
// produces another notification.
package poller
