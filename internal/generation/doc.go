// Package generation defines the boundary between the task runner and the
// language model that writes recommendations. A Generator turns an itinerary
// or report payload into content; this package also owns the prompts and the
// parsing rules that make model output safe to store as a task result.
package generation
