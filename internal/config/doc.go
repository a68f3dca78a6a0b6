// Package config loads, normalizes, and validates attyvo configuration data.
//
// It supplies defaults (a base directory under the system temporary
// directory, a 24x80 terminal, console logging), expands user paths including
// tilde shortcuts, reads TOML files, and honours the ATTYVO_BASE_DIR and
// ATTYVO_LOG_LEVEL environment overrides.
//
// Every component that touches the daemon base directory receives it from a
// Config rather than a process-wide constant, so tests can point the whole
// stack at a throwaway directory.
package config
