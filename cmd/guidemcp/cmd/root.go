// Package cmd provides the CLI commands for GuideMCP.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/guidemcp/pkg/version"
)

// configPath is the --config persistent flag value, shared by all commands.
var configPath string

// NewRootCmd creates the root command for the guidemcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guidemcp",
		Short: "MCP server for best-practice guideline corpora",
		Long: `GuideMCP serves curated guideline corpora (C++ Core Guidelines,
Rust API Guidelines, Node.js Best Practices) to AI coding assistants
over the Model Context Protocol.

Each corpus family gets its own server process:

  guidemcp serve --family cpp

exposes search_guidelines, get_guideline, list_category, and
update_guidelines for that family over stdio.`,
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("guidemcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: ./guidemcp.yaml, ~/.config/guidemcp/config.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newFamiliesCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
