// Package misc keeps build time information.
package misc

// Set by the linker: -X inlinesvg/misc.version=... -X inlinesvg/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "inlinesvg"

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git commit the program was built from.
func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name used for logs and temporary files.
func GetAppName() string {
	return appName
}
