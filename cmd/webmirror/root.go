// Package main provides the entry point for the webmirror CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webmirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webmirror",
		Short: "Mirror websites into self-contained zip archives",
		Long: `Webmirror crawls a website, downloads its images, stylesheets, scripts,
PDFs, and embedded videos, rewrites every reference to a local path,
and packs the result into a single zip archive that browses offline.

By default only the start page and its resources are mirrored.
Use --depth to follow links into the site.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
