package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruuig/tienda-online-sub002/internal/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rebuildForce bool
	statsJSON    bool
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vendor's knowledge-base index",
	Long: `Re-embeds every active document of the vendor and replaces the index.
Without --force an index that is already loaded is left as is.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics and indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildForce, "force", false, "rebuild even if the index is loaded")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(rebuildCmd, statsCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	res, err := container.RagService.RebuildIndex(context.Background(), vendorID, rebuildForce)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if !res.Rebuilt {
		cmd.Println("Index already loaded, nothing to do (use --force to rebuild).")
	}
	printStats(cmd, res.Stats)

	for _, d := range res.Indexed {
		cmd.Printf("  %s %s (%d chunks)\n", color.GreenString("✓"), d.Title, d.Chunks)
	}
	for _, f := range res.Failed {
		cmd.Printf("  %s %s: %s\n", color.RedString("✗"), f.Title, f.Error)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	stats, err := container.RagService.GetStats(ctx, vendorID)
	if err != nil {
		return err
	}
	documents, err := container.RagService.GetIndexedDocuments(ctx, vendorID)
	if err != nil {
		return err
	}

	if statsJSON {
		data, err := json.MarshalIndent(map[string]interface{}{"stats": stats, "documents": documents}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStats(cmd, *stats)
	for i, d := range documents {
		cmd.Printf("  [%d] %s (%d chunks, %s)\n", i+1, d.Title, d.Chunks, d.LastIndexed.Format("2006-01-02 15:04"))
	}
	return nil
}

func printStats(cmd *cobra.Command, stats dto.IndexStatsResponse) {
	loaded := color.YellowString("not loaded")
	if stats.Loaded {
		loaded = color.GreenString("loaded")
	}
	cmd.Printf("Vendor %s: %s, %d documents, %d chunks, ~%d KiB\n",
		stats.VendorId, loaded, stats.TotalDocuments, stats.IndexedChunks, stats.MemoryUsage/1024)
}
