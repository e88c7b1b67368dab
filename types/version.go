//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical module version, reported by the CLI's version
// command and --version flag.
const Version = "0.1.0"
