// Package cli wires together the Cobra command tree for the apigate binary.
//
// It defines the root command and all subcommands (check, update, compare,
// annotate, diagnostics, store, config, version), builds the zap logger from
// --log-level, reads configuration, invokes the checker jobs, and returns
// deterministic exit codes for CI gating.
package cli
