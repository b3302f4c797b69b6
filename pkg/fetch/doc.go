// Package fetch provides an HTTP [loader.Injector].
//
// [HTTP] downloads module bodies from their resolved URLs. A script body is
// a JSON object whose top-level keys are the module's exports:
//
//	{"greeting": "hello", "answer": 42}
//
// The generated factory copies each key into the request namespace, in key
// order. Stylesheet bodies are kept in memory and reported applied through
// [HTTP.StylesheetLoaded], which the loader polls.
//
// Requests for the same URL that overlap in time share one HTTP round trip.
// Transient failures (connection errors, 5xx) are retried with exponential
// backoff. Successful bodies are stored in a [cache.Cache] keyed by
// [cache.Keyer.ModuleKey].
package fetch
