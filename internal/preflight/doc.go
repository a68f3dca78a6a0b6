// Package preflight provides readiness checks for the host facilities attyvo
// depends on: writable base and log directories, FIFO creation, and
// pseudo-terminal allocation.
//
// The CLI doctor command runs them before anything is launched so a host
// without /dev/ptmx or with a read-only base directory is diagnosed up front
// instead of surfacing as a spawn failure inside a detached supervisor.
package preflight
