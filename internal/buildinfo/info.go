package buildinfo

var (
	// Version will be set via ldflags during build.
	Version = "dev"
	// Commit will be set via ldflags during build.
	Commit = "none"
	// Date will be set via ldflags during build.
	Date = "unknown"
)

// Summary renders the full build identity for --version output.
func Summary() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}

// UserAgent identifies this client to remote APIs.
func UserAgent() string {
	return "corpledger/" + Version
}
