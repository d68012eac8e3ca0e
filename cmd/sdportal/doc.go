// Package main hosts the sdportal CLI entrypoint and command graph.
//
// Commands query the relay catalogs, build and submit inference tasks, and
// follow submitted tasks until their images land on disk. Configuration
// resolution, logging, and relay client construction live in the shared
// command context so subcommands only describe flags and output.
//
// New behavior belongs in the internal packages first; commands here should
// stay thin wrappers that translate flags into calls and results into tables
// or JSON.
package main
