// Package llm wraps Genkit text generation with retry and circuit breaking.
//
// Remote inference providers rate-limit and fail transiently; the client
// retries retryable failures with exponential backoff and opens a circuit
// after sustained failure so a dead provider fails fast instead of burning
// the caller's timeout budget on every call.
package llm
