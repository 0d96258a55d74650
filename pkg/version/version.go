package version

// Version is the cvsearch release.
const Version = "1.2.0"

// BuildVersion returns the version string printed by the CLI.
func BuildVersion() string {
	return "cvsearch version " + Version
}

// APIVersion returns the bare version reported by the HTTP API.
func APIVersion() string {
	return Version
}
