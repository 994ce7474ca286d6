// Package openrouter is a streaming chat completion client for an
// OpenRouter-compatible aggregator API.
//
// It contains:
//   - [Client] with request construction (auth, attribution headers) and the model list
//   - [Session], one in-flight streamed completion with its own cancel func and state
//
// Failures never surface as a second channel to the UI: a non-2xx response
// becomes a single "[Error: <status> - <body>]" delta, a transport failure a
// single "[System Error: <msg>]" delta, and cancellation ends the stream
// silently. Requests are never retried.
package openrouter
