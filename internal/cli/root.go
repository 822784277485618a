// Package cli 實作 recipectl 命令列工具。
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/spf13/cobra"
)

var flagVerbose bool

// NewRootCommand 建立根命令與所有子命令
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "recipectl",
		Short: "recipectl - inspect and run the recipe import pipeline",
		Long: `recipectl exposes the recipe import pipeline from the command line.
Every command prints JSON to stdout.

Usage:
  recipectl parse "2 tbsp olive oil" "1-2 cloves garlic"
  recipectl title "Best Pancakes Recipe | My Blog"
  recipectl units tbsp cups kg
  recipectl recover reply.txt
  recipectl hero https://example.com/pancakes
  recipectl import https://example.com/pancakes`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Write service logs to stdout and logs/app.log")

	root.AddCommand(
		newParseCommand(),
		newTitleCommand(),
		newUnitsCommand(),
		newRecoverCommand(),
		newHeroCommand(),
		newImportCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 載入設定；--verbose 時才啟用日誌，避免污染 JSON 輸出
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagVerbose {
		if err := common.InitLogger(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	return cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
