package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streakworks/tally/internal/catalog"
	"github.com/streakworks/tally/internal/store"
	"github.com/streakworks/tally/internal/types"
)

var (
	seedDBPath      string
	seedCatalogPath string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the task template catalog into the store",
	Long:  "Reads the template catalog (embedded by default) and upserts every template. Re-running is idempotent.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDBPath, "db", defaultDBPath(),
		"Database path (overrides TALLY_DB_PATH)")
	seedCmd.Flags().StringVar(&seedCatalogPath, "catalog", "",
		"Catalog YAML path (defaults to the embedded catalog)")
}

func defaultDBPath() string {
	if v := os.Getenv("TALLY_DB_PATH"); v != "" {
		return v
	}
	return "data/tally.db"
}

func runSeed(cmd *cobra.Command, args []string) error {
	templates, err := loadCatalog(seedCatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.NewSQLiteStore(seedDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	for _, tpl := range templates {
		if err := db.UpsertTemplate(cmd.Context(), tpl); err != nil {
			return fmt.Errorf("seed template %q: %w", tpl.ID, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d templates into %s\n", len(templates), seedDBPath)
	return nil
}

func loadCatalog(path string) ([]types.TaskTemplate, error) {
	if path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Load()
}
