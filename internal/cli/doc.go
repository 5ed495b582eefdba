// Package cli defines the Cobra command tree for addonctl. Each file
// registers one top-level command with the root command. Commands parse
// flags, build the marketplace from configuration and hand off to
// internal/market; they only handle I/O formatting and user interaction.
package cli
