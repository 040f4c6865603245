package version

// Set via -ldflags at release build time.
var (
	Version = "dev"
	Date    = "unknown"
)
