// Package models contains data types and constants for the chat endpoints.
package models

import "strings"

// DefaultHost is used when no host is configured
const DefaultHost = "http://localhost:9000"

// Endpoint paths, relative to the host
const (
	PathChat   = "/chat"
	PathStream = "/stream"
)

// Endpoint joins host and path without doubling slashes
func Endpoint(host, path string) string {
	if host == "" {
		host = DefaultHost
	}
	return strings.TrimRight(host, "/") + path
}

// DefaultHeaders returns the headers for the buffered /chat request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json;charset=UTF-8",
		"Accept":       "application/json",
	}
}

// StreamHeaders returns the headers for the streamed /stream request
func StreamHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json, text/plain, */*",
	}
}
