// Package workspace manages scratch directories for builds, supporting both
// ephemeral (timestamped) and persistent (fixed-path) modes.
//
// Ephemeral mode creates timestamped directories (e.g., fwbuild-20260826-142233)
// so concurrent or repeated invocations never share intermediate files, and
// removes them completely after use.
//
// Persistent mode uses a fixed directory path that survives across builds,
// keeping intermediates (objects, link maps) around for post-hoc inspection.
package workspace
