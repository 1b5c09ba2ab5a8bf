package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eapayk/quanlitien/config"
	"github.com/eapayk/quanlitien/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe all stored application data",
	Long:  `This command drops every stored record: users, the active session, the theme, and the asset cache registry. There is no undo.`,
	Run:   reset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func reset(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	if err := st.Reset(cmd.Context()); err != nil {
		log.Fatalf("failed to reset store: %v", err)
	}

	log.Info("Successfully wiped all stored data", "store", cfg.Store.Path)
}
