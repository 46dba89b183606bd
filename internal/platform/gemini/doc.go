// Package gemini implements generation.Generator on Google's Gemini API.
//
// Prompts come from the generation package; this package sends them through
// google.golang.org/genai, retries transient failures with exponential
// backoff and jitter, and maps safety blocks and unparseable output to the
// generation package's errors.
//
// StaticGenerator is a deterministic stand-in used when no API key is
// configured, so the backend and CLI can run locally end to end.
package gemini
