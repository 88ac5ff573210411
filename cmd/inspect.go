package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/tool"
)

func newInspectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "inspect <batch_id>",
		Short: "Print a stored batch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool.SetLogMode("prod")
			appCfg, err := tool.LoadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := storage.Connect(appCfg.DatabaseDSN)
			if err != nil {
				return err
			}
			batch, err := storage.NewRepository(db).GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("batch %s: %w", args[0], err)
			}
			out, err := sonic.ConfigStd.MarshalIndent(batch, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			fmt.Fprintf(cmd.OutOrStdout(), "total size: %s\n", tool.FormatSize(batch.TotalSize()))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "override config file path")

	return cmd
}
