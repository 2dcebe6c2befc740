package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "text2cal",
	Short: "Attention-weighted personal memory",
	Long:  "Text2Cal stores free-form memory entries, ranks them with self-attention over embeddings blended with a decaying attention ledger, and turns the top entries into suggestions. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(weightCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(insightsCmd)
}
