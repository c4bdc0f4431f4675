// Package constants provides shared constants used throughout the metasync
// codebase: timeouts, limits, file permissions and hashing parameters that
// should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to
	// the catalogue, registry and minting collaborators
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like credentials (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentDigests is the default bound on files hashed in parallel
	// during manifest capture and verification
	MaxConcurrentDigests = 8

	// DigestBlockSize is the read block size for streaming digests; memory
	// use per file stays constant regardless of file size
	DigestBlockSize = 64 * 1024
)
