// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docdeck/internal/images"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Maintain the extracted image folder",
}

var imagesDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Move byte-identical images into a duplicates folder",
	Long: `Dedupe groups the PNG and JPEG files of the image folder by content hash,
keeps the shortest name of each group and moves the others into a
duplicates subfolder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = imagesDir(loadConfig().Conversion)
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		out := cmd.OutOrStdout()
		rep, err := images.Dedupe(dir, dryRun, out)
		if err != nil {
			return err
		}
		verb := "Moved"
		if rep.DryRun {
			verb = "Would move"
		}
		fmt.Fprintf(out, "Scanned %d images. %s %d duplicates (%d bytes).\n", rep.Scanned, verb, rep.Duplicates, rep.BytesFreed)
		return nil
	},
}

func init() {
	imagesDedupeCmd.Flags().String("dir", "", "image folder (default: <convert output>/images)")
	imagesDedupeCmd.Flags().Bool("dry-run", false, "report duplicates without moving them")

	imagesCmd.AddCommand(imagesDedupeCmd)
	rootCmd.AddCommand(imagesCmd)
}
