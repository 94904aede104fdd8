// Package enrich sends collected material to an OpenAI-compatible API for
// post-collection analysis, e.g. extracting structured entities from a
// fetched HTML page with a local vLLM server.
//
// The endpoint is a local or directly-reachable service, so requests use
// plain HTTP and are not routed through Tor. The API key, when configured,
// is sent as a Bearer token and never logged.
package enrich
