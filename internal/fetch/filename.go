package fetch

import (
	"net/url"
	"strings"
)

// Fallback names for in-memory fetches without a better hint.
const (
	memoryFallbackName = "response.txt"
	jsonFallbackName   = "response.json"
	csvFallbackName    = "response.csv"
)

// ResolveFilename decides the local filename for a fetched resource.
//
// Precedence:
//  1. the Content-Disposition filename parameter,
//  2. the last non-empty path segment of the request URL,
//  3. the configured fallback.
func ResolveFilename(resp *Response, target *url.URL, fallback string) string {
	if resp != nil {
		if name, ok := resp.ContentDispositionFilename(); ok {
			return name
		}
	}

	if target != nil {
		segments := strings.Split(target.Path, "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if segments[i] != "" {
				return segments[i]
			}
		}
	}

	return fallback
}

// SuggestedFilename proposes a filename for an in-memory fetch. The content
// type drives the choice for the formats the tool produces on purpose
// (SPARQL result sets and CSV exports); anything else falls back to the
// Content-Disposition name and then a generic text name.
func SuggestedFilename(resp *Response) string {
	switch mediaType(resp.ContentType()) {
	case "application/json", "application/sparql-results+json":
		return jsonFallbackName
	case "text/csv":
		return csvFallbackName
	}

	if name, ok := resp.ContentDispositionFilename(); ok {
		return name
	}
	return memoryFallbackName
}

// mediaType strips parameters (e.g. charset) and normalizes case.
func mediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
