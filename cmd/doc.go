// Package cmd contains the command-line interface (CLI) definitions and execution logic for servicewrap.
// It provides the root command and its subcommands, which launch a containerized service, wait until it is
// healthy and tear it down again.
//
// Key components:
//   - run: Starts the service and keeps it up, re-probing on a schedule, until interrupted.
//   - check: Starts the service, waits for a healthy verdict and tears it down.
//   - describe: Prints the resolved service configuration as YAML.
//
// Usage examples:
//   - Run the CLI from main.go:
//     cmd.Execute()
//   - Run the keyset preset:
//     servicewrap run --preset keyset
//
// The package integrates with the service, container, notifications, and flags packages,
// using Cobra for CLI parsing and logrus for logging.
package cmd
