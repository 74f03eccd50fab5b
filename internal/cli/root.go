// Package cli implements the deckgen command line tool.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "deckgen",
		Short:        "Turn text into a PowerPoint deck styled by your template",
		SilenceUsage: true,
	}

	root.AddCommand(newGenerateCommand(defaultDeps()))
	root.AddCommand(newProvidersCommand())
	return root
}
