// Package commands wires the parley client CLI.
//
// Subcommands:
//
//	keygen      - generate a key file
//	fingerprint - print the fingerprint of a key file
//	chat        - connect to a relay and chat interactively
package commands
