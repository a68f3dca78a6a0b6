// Package logging assembles structured slog loggers and formatting helpers used
// by the attyvo CLI and its detached supervisors.
//
// It owns the console and JSON handlers, routes file outputs through rotated
// lumberjack writers, and tags log lines with component and daemon names so a
// supervisor log can be read without knowing which process wrote it. Old
// supervisor logs are pruned by CleanupOldLogs.
package logging
