package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batchshare",
		Short: "Telegram bot that bundles uploaded files into shareable batches",
		Long: `batchshare lets admins collect several files into one batch and share it
through a single deep link. Files are kept in a storage channel; the bot only
records references to them.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}
