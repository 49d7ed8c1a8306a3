// Package consts holds names and values shared by every glance package.
package consts

import (
	"sync/atomic"
	"time"
)

const (
	// ProjectName is the display name
	ProjectName = "Glance"
	// ServiceName identifies the process to telemetry backends
	ServiceName = "glance"
)

// Report files and URLs
const (
	// FileFormatVersion is written into report file headers; readers accept
	// this version and older ones
	FileFormatVersion = 4

	// RunIDLayout formats the timestamp of generated run ids
	RunIDLayout = "2006_01_02_15_04_05"

	// LatestRun resolves to the newest run of a report
	LatestRun = "latest"

	// AllTag counts every block in the tag filter
	AllTag = "All"
)

// Export formats
const (
	ExportFormatMarkdown = "markdown"
	ExportFormatJSON     = "json"
	ExportFormatHTML     = "html"
	ExportFormatPDF      = "pdf"
)

// Build information, linked in by cmd/glance
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// startedAt is the server start in unix nanoseconds, 0 until MarkStarted
var startedAt atomic.Int64

// MarkStarted records the server start time. Later calls are ignored.
func MarkStarted(t time.Time) {
	startedAt.CompareAndSwap(0, t.UnixNano())
}

// StartedAt returns the recorded start time, or the zero time
func StartedAt() time.Time {
	ns := startedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Uptime returns the time since MarkStarted, or 0 before it
func Uptime() time.Duration {
	ns := startedAt.Load()
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}
