// Package main provides the entry point for the torcollect CLI.
//
// Torcollect fetches web resources through the Tor network with circuit
// isolation between runs, and records every completed fetch in a
// provenance ledger.
//
// Usage:
//
//	torcollect collect <url>...
//	torcollect history
//
// See --help for all available options.
package main

// main is the entry point for torcollect.
func main() {
	Execute()
}
