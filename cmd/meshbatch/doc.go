// Package main hosts the meshbatch CLI entrypoint and command graph.
//
// The Cobra command tree exposes the three batch stages of the simulation
// pipeline (mesh conversion, solving and scene document generation) plus run
// history, environment status and configuration scaffolding. Configuration,
// logging and the run ledger are resolved once in commandContext so
// subcommands only translate flags into calls on the internal packages.
package main
