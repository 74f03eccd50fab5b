package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers and their default models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			llm := services.NewLLMService(services.DefaultProviders(""), services.DefaultRetryPolicy(), nil)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tDEFAULT MODEL\tMODEL REQUIRED")
			for _, p := range llm.SupportedProviders() {
				model := p.DefaultModel
				if model == "" {
					model = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\n", p.Name, model, p.RequiresModel)
			}
			return tw.Flush()
		},
	}
}
