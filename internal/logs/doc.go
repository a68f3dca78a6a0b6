// Package logs reads supervisor log files for the logs command.
//
// Last returns the final lines of a file with bounded memory, and Follow polls
// from an offset and hands each new line to a callback until its context ends.
// Follow restarts from the top when the file shrinks, which is what a rotation
// by the daemon's lumberjack writer looks like from the outside.
package logs
