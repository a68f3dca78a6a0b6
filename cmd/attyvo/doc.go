// Package main hosts the attyvo CLI entrypoint and command graph.
//
// attyvo launches an arbitrary command as a detached daemon attached to a
// pseudo-terminal and lets later, independent invocations talk to it through
// three named pipes in a shared base directory. The Cobra command tree resolves
// configuration and logging once per invocation and hands every operation to
// internal/daemonctl; the hidden supervise command is how the binary re-enters
// itself as the detached supervisor.
//
// Keep this package declarative: behaviour belongs in the internal packages,
// formatting and flag handling belong here.
package main
