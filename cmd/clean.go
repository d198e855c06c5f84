package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"newsreel/pkg/config"

	"github.com/spf13/cobra"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover job intermediates",
	Long: `Remove scratch directories left behind by interrupted jobs. With --all the
image cache (downloaded and generated base images) is removed too.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Also remove the image cache")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(cmd.Context(), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	count, err := removeChildren(filepath.Join(cfg.Video.CacheDir, "jobs"))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d leftover job dir(s)\n", count)

	if cleanAll {
		if err := os.RemoveAll(cfg.Video.CacheDir); err != nil {
			return fmt.Errorf("remove cache: %w", err)
		}
		fmt.Println("Removed image cache")
	}
	return nil
}

func removeChildren(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return 0, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return len(entries), nil
}
