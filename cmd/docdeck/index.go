// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docdeck/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and query the context index",
	Long: `Index chunks an aggregated context file into a SQLite full-text index
used to retrieve excerpts for slide generation. The index is rebuilt only
when the context file changes.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Chunk the context file into the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig().Index
		contextPath, _ := cmd.Flags().GetString("context")

		store, err := index.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := store.Build(cmd.Context(), contextPath, cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sum.Skipped {
			fmt.Fprintf(out, "Index is up to date: %d chunks in %s\n", sum.Chunks, cfg.DBPath)
			return nil
		}
		fmt.Fprintf(out, "Indexed %d chunks from %d sources into %s\n", sum.Chunks, sum.Sources, cfg.DBPath)
		return nil
	},
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the chunks retrieved for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig().Index
		k, _ := cmd.Flags().GetInt("k")
		if k <= 0 {
			k = cfg.K
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := index.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		chunks, err := store.Search(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(chunks)
		}
		for i, c := range chunks {
			fmt.Fprintf(out, "[%d] %s (chunk %d)\n%s\n\n", i+1, c.SourceDocName, c.ID, c.Content)
		}
		return nil
	},
}

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every indexed chunk as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig().Index
		store, err := index.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Export(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	pf := indexCmd.PersistentFlags()
	pf.String("db", filepath.Join("output", "index", "context.db"), "index database path")
	pf.Int("chunk-size", 1000, "target chunk length in characters")
	pf.Int("chunk-overlap", 200, "characters shared by neighbouring chunks")
	viper.BindPFlag("index.db_path", pf.Lookup("db"))
	viper.BindPFlag("index.chunk_size", pf.Lookup("chunk-size"))
	viper.BindPFlag("index.chunk_overlap", pf.Lookup("chunk-overlap"))

	indexBuildCmd.Flags().String("context", filepath.Join("output", "context.md"), "aggregated context file")
	indexSearchCmd.Flags().Int("k", 0, "number of chunks to return (default from config)")
	indexSearchCmd.Flags().Bool("json", false, "output chunks as JSON")

	indexCmd.AddCommand(indexBuildCmd, indexSearchCmd, indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}
