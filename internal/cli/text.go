package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/core/page"
	"recipe-importer/internal/core/units"
	"recipe-importer/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <line>...",
		Short: "Parse ingredient lines into quantity, unit and name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), ingredient.ParseLines(args))
		},
	}
}

func newTitleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "title <raw title>",
		Short: "Clean a page title (site suffixes, 'recipe' wording, casing)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"raw":   raw,
				"title": page.CleanTitle(raw),
			})
		},
	}
}

// unitReport 單一單位詞的兩種正規形式
type unitReport struct {
	Token      string   `json:"token"`
	Display    *string  `json:"display"`
	MergeUnit  *string  `json:"merge_unit"`
	MergeScale *float64 `json:"merge_scale"`
}

func newUnitsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "units <token>...",
		Short: "Show display and merge canonical forms of unit tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := make([]unitReport, 0, len(args))
			for _, token := range args {
				reports = append(reports, describeUnit(token))
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
}

func describeUnit(token string) unitReport {
	r := unitReport{Token: token}
	if d, ok := units.CanonUnitStr(token); ok {
		r.Display = &d
	} else if d, _, ok := units.Imperial(token); ok {
		r.Display = &d
	}
	if !units.IsKnown(token) {
		return r
	}
	unit, qty := units.ToCanonical(token, common.Float64Ptr(1))
	r.MergeUnit = &unit
	r.MergeScale = qty
	return r
}

func newRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover [file|-]",
		Short: "Recover a JSON object from a model reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			raw, err := common.RecoverJSON(string(data))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
