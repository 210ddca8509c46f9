package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/config"
	"github.com/pders01/cclens/internal/fingerprint"
)

var cacheClear bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the fingerprint cache",
	Long: `Show the state of the durable fingerprint cache, or drop it so the
next scan re-parses everything.

Examples:
  cclens cache
  cclens cache --clear`,
	RunE: runCache,
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "Drop every cache entry")
}

func runCache(cmd *cobra.Command, args []string) error {
	cache := fingerprint.Open(config.CachePath())
	defer cache.Close()

	if cacheClear {
		if err := cache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Fingerprint cache cleared")
		return nil
	}

	fmt.Printf("Cache:   %s\n", cache.Path())
	fmt.Printf("Entries: %d\n", cache.Len())
	fmt.Printf("Schema:  v%d\n", fingerprint.SchemaVersion)
	return nil
}
