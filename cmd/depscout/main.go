// Package main provides the entry point for the depscout CLI.
//
// depscout scores npm packages from their registry metadata, download
// counts and GitHub activity, and tells whether they are worth adopting.
//
// Usage:
//
//	depscout study <package>...
//	depscout check
//
// See --help for all available options.
package main

func main() {
	Execute()
}
