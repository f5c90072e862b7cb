package main

import (
	"errors"
	"os"

	"github.com/ruuig/tienda-online-sub002/internal/bootstrap"
	"github.com/ruuig/tienda-online-sub002/internal/config"
	"github.com/ruuig/tienda-online-sub002/pkg/database"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	vendorFlag string

	container *bootstrap.Container
	vendorID  uuid.UUID
)

var rootCmd = &cobra.Command{
	Use:   "assistantctl",
	Short: "Operate the store assistant",
	Long: `Administrative commands for the store assistant: rebuild a vendor's
knowledge-base index, inspect it and chat with the assistant from a terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(vendorFlag)
		if err != nil {
			return errors.New("--vendor must be a vendor UUID")
		}
		vendorID = id

		cfg := config.Load()
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
		if err != nil {
			return err
		}
		container = bootstrap.NewContainer(db, cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if container != nil {
			container.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vendorFlag, "vendor", os.Getenv("ASSISTANT_VENDOR_ID"), "vendor UUID (default $ASSISTANT_VENDOR_ID)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
