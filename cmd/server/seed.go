package main

import (
	"fmt"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/repository"
	"campus-support/backend/internal/service"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-faqs",
		Short: "Load FAQ entries from a YAML file, updating entries with the same question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := service.LoadSeedFile(file)
			if err != nil {
				return err
			}

			cfg, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			faqs := service.NewFAQService(repository.NewStore(db), nil, log)
			created, updated, err := faqs.Seed(cmd.Context(), entries)
			if err != nil {
				return err
			}
			log.Info("FAQs seeded", "file", file, "created", created, "updated", updated)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d\n", created, updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "data/faqs.yaml", "seed file")
	return cmd
}
