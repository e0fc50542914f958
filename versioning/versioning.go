package versioning

var (
	// Version of the interop node, embedded by --ldflags on build time.
	// Versioning should follow the SemVer guidelines
	// https://semver.org/
	Version = "v0.1.0"
	// Commit is the git commit that the binary was built on
	Commit string
	Branch string
	// BuildTime is the timestamp of the build
	BuildTime string
)
