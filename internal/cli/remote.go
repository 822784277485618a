package cli

import (
	"fmt"
	"os"

	"recipe-importer/internal/app"
	"recipe-importer/internal/core/page"
	"recipe-importer/internal/core/recipe"

	"github.com/spf13/cobra"
)

var (
	flagHTMLFile string
	flagModel    string
)

// heroReport 主圖選擇結果與排名
type heroReport struct {
	URL        string                `json:"url"`
	Hero       string                `json:"hero,omitempty"`
	Candidates []page.ImageCandidate `json:"candidates"`
}

func newHeroCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hero <url>",
		Short: "Rank hero image candidates of a recipe page",
		Long: `Hero fetches the page (or reads --html) and prints the ranked image candidates.
The url is still required with --html; relative image URLs resolve against it.`,
		Args: cobra.ExactArgs(1),
		RunE: runHero,
	}
	cmd.Flags().StringVar(&flagHTMLFile, "html", "", "Read HTML from this file instead of fetching the url")
	return cmd
}

func runHero(cmd *cobra.Command, args []string) error {
	pageURL := args[0]
	if err := page.ValidateURL(pageURL); err != nil {
		return err
	}

	var html string
	if flagHTMLFile != "" {
		data, err := os.ReadFile(flagHTMLFile)
		if err != nil {
			return fmt.Errorf("failed to read html: %w", err)
		}
		html = string(data)
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pg, err := page.NewFetcher(cfg.Fetch).Fetch(cmd.Context(), pageURL)
		if err != nil {
			return err
		}
		html, pageURL = pg.HTML, pg.FinalURL
	}

	ranked, err := page.RankImageCandidates(html, pageURL)
	if err != nil {
		return err
	}
	report := heroReport{URL: pageURL, Candidates: ranked}
	if len(ranked) > 0 {
		report.Hero = ranked[0].URL
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import a recipe from a URL using the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			services, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Close()

			r, err := services.Importer.ImportURL(ctx, recipe.ImportURLRequest{URL: args[0], Model: flagModel})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVar(&flagModel, "model", "", "Override the extraction model")
	return cmd
}
