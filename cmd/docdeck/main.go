// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docdeck CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/internal/secrets"
	"github.com/pdiddy/docdeck/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// secretDefault returns fallback when set, otherwise the secret stored under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets.Get(key)
}

var rootCmd = &cobra.Command{
	Use:   "docdeck",
	Short: "Turn a folder of documents into Markdown context and slide decks",
	Long: `docdeck converts PDF, DOCX, PPTX, XLSX and TXT files into normalized
Markdown with an audit report and extracted images, then optionally indexes
that context and drives a model to generate lesson slide decks.

Stages are subcommands: convert, index, generate and images.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)

		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("secrets loaded", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./docdeck.yaml or ~/.config/docdeck/docdeck.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func setDefaults() {
	viper.SetDefault("secrets_dir", secrets.DefaultDir)

	viper.SetDefault("convert.input_dir", "input")
	viper.SetDefault("convert.output_dir", "output")
	viper.SetDefault("convert.mode", string(types.ModePerDocument))
	viper.SetDefault("convert.threads", 2)
	viper.SetDefault("convert.images", true)
	viper.SetDefault("convert.images_subdir", "images")
	viper.SetDefault("convert.frontmatter", true)
	viper.SetDefault("convert.toc", true)
	viper.SetDefault("convert.backend", string(types.BackendNative))

	viper.SetDefault("index.db_path", filepath.Join("output", "index", "context.db"))
	viper.SetDefault("index.chunk_size", 1000)
	viper.SetDefault("index.chunk_overlap", 200)
	viper.SetDefault("index.k", 5)

	viper.SetDefault("generation.provider", string(types.ProviderGemini))
	viper.SetDefault("generation.location", "us-central1")
	viper.SetDefault("generation.temperature", 0.2)
	viper.SetDefault("generation.max_attempts", 5)
	viper.SetDefault("generation.default_delay", "10s")
	viper.SetDefault("generation.requests_per_minute", 0)
	viper.SetDefault("generation.output_dir", filepath.Join("output", "decks"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docdeck")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docdeck"))
		}
	}

	viper.SetEnvPrefix("DOCDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the stage configurations from viper.
func loadConfig() types.Config {
	return types.Config{
		Conversion: types.ConversionConfig{
			InputDir:     viper.GetString("convert.input_dir"),
			OutputDir:    viper.GetString("convert.output_dir"),
			Mode:         types.OutputMode(viper.GetString("convert.mode")),
			Threads:      viper.GetInt("convert.threads"),
			Images:       viper.GetBool("convert.images"),
			ImagesSubdir: viper.GetString("convert.images_subdir"),
			Frontmatter:  viper.GetBool("convert.frontmatter"),
			TOC:          viper.GetBool("convert.toc"),
			Backend:      types.ConversionBackend(viper.GetString("convert.backend")),
		},
		Index: types.IndexConfig{
			DBPath:       viper.GetString("index.db_path"),
			ChunkSize:    viper.GetInt("index.chunk_size"),
			ChunkOverlap: viper.GetInt("index.chunk_overlap"),
			K:            viper.GetInt("index.k"),
		},
		Generation: types.GenerationConfig{
			Provider:          types.LLMProvider(viper.GetString("generation.provider")),
			Model:             viper.GetString("generation.model"),
			Project:           viper.GetString("generation.project"),
			Location:          viper.GetString("generation.location"),
			BaseURL:           viper.GetString("generation.base_url"),
			Temperature:       float32(viper.GetFloat64("generation.temperature")),
			MaxAttempts:       viper.GetInt("generation.max_attempts"),
			DefaultDelay:      viper.GetDuration("generation.default_delay"),
			RequestsPerMinute: viper.GetInt("generation.requests_per_minute"),
			Template:          viper.GetString("generation.template"),
			OutputDir:         viper.GetString("generation.output_dir"),
		},
	}
}

// imagesDir is where convert writes extracted images and generate looks
// for them.
func imagesDir(cfg types.ConversionConfig) string {
	return filepath.Join(cfg.OutputDir, cfg.ImagesSubdir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
