// Package version records the module version stamped into logs and builds.
package version

// Version is the current release of the interview core.
const Version = "0.3.0"
