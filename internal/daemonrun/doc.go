// Package daemonrun is the body of the detached processes started by create.
//
// Main is entered through the hidden supervise subcommand. The detach stage
// starts the supervisor and exits; the supervisor locks the PID file, opens
// the daemon side of the FIFOs, allocates a pseudo-terminal, starts the target
// command and blocks until it exits. Every outcome of that sequence is reported
// to create over the handshake descriptor before the supervisor starts
// waiting.
package daemonrun
