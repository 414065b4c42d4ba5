package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streakworks/tally/internal/scoring"
	"github.com/streakworks/tally/internal/types"
)

var (
	previewTemplateID  string
	previewCatalogPath string
	previewDifficulty  string
	previewDone        bool
	previewNumeric     float64
	previewTime        string
	previewDuration    float64
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Score a check-in value against a catalog template without storing anything",
	Example: `  tally preview --template daily-steps --numeric 8420
  tally preview --template workout --done
  tally preview --template bedtime --time 22:30 --difficulty hard`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewTemplateID, "template", "", "Template ID from the catalog (required)")
	previewCmd.Flags().StringVar(&previewCatalogPath, "catalog", "", "Catalog YAML path (defaults to the embedded catalog)")
	previewCmd.Flags().StringVar(&previewDifficulty, "difficulty", "", "Difficulty preset: easy, medium, hard")
	previewCmd.Flags().BoolVar(&previewDone, "done", false, "Binary value: task completed")
	previewCmd.Flags().Float64Var(&previewNumeric, "numeric", 0, "Numeric value")
	previewCmd.Flags().StringVar(&previewTime, "time", "", "Clock value (HH:MM)")
	previewCmd.Flags().Float64Var(&previewDuration, "duration", 0, "Duration value in minutes")
	previewCmd.MarkFlagRequired("template")
}

func runPreview(cmd *cobra.Command, args []string) error {
	templates, err := loadCatalog(previewCatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var tpl *types.TaskTemplate
	for i := range templates {
		if templates[i].ID == previewTemplateID {
			tpl = &templates[i]
			break
		}
	}
	if tpl == nil {
		return fmt.Errorf("template %q not found in catalog", previewTemplateID)
	}

	var difficulty *types.DifficultyLevel
	if previewDifficulty != "" {
		d := types.DifficultyLevel(previewDifficulty)
		difficulty = &d
	}

	eff, err := scoring.EffectiveTemplate(*tpl, difficulty)
	if err != nil {
		return err
	}

	value, err := previewValue(cmd, eff.InputKind)
	if err != nil {
		return err
	}

	result, err := scoring.Evaluate(scoring.Input{
		Template: eff,
		Value:    value,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// previewValue builds the check-in value from whichever flag matches the
// template's input kind.
func previewValue(cmd *cobra.Command, kind types.InputKind) (types.CheckinValue, error) {
	var v types.CheckinValue

	switch kind {
	case types.InputBinary:
		done := previewDone
		v.Boolean = &done
	case types.InputNumeric:
		if !cmd.Flags().Changed("numeric") {
			return v, fmt.Errorf("template requires --numeric")
		}
		n := previewNumeric
		v.Numeric = &n
	case types.InputTime:
		if previewTime == "" {
			return v, fmt.Errorf("template requires --time HH:MM")
		}
		s := previewTime
		v.Time = &s
	case types.InputDuration:
		if !cmd.Flags().Changed("duration") {
			return v, fmt.Errorf("template requires --duration")
		}
		d := previewDuration
		v.DurationMinutes = &d
	default:
		return v, fmt.Errorf("unknown input kind %q", kind)
	}

	return v, nil
}
