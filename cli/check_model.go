package cli

import (
	"fmt"
	"strings"

	"cardiorisk/heart"
	"cardiorisk/ml"

	"github.com/spf13/cobra"
)

func newCheckModelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-model [artifact]",
		Short: "Validate a model artifact and run it on a reference row",
		Long: `Loads the artifact (default: model.path from the config), checks it
against the thirteen expected features and prints the label it assigns to a
well-known example row.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var over overrides
			if len(args) == 1 {
				over.modelPath = args[0]
			}
			cfg, _, err := opts.loadConfig(cmd, over)
			if err != nil {
				return err
			}
			return checkModel(cmd, cfg.Model.Path)
		},
	}
}

func checkModel(cmd *cobra.Command, path string) error {
	model, err := ml.LoadModel(path, heart.FeatureNames())
	if err != nil {
		return fmt.Errorf("invalid model artifact: %w", err)
	}
	predictor, err := heart.NewPredictor(model)
	if err != nil {
		return err
	}
	result, err := predictor.Predict(cmd.Context(), heart.ReferenceFields())
	if err != nil {
		return fmt.Errorf("reference prediction: %w", err)
	}

	info := model.Info()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "artifact:  %s\n", path)
	fmt.Fprintf(out, "name:      %s\n", info.Name)
	fmt.Fprintf(out, "type:      %s (format v%d)\n", info.Type, info.FormatVersion)
	fmt.Fprintf(out, "features:  %d", info.FeatureCount)
	if len(info.FeatureNames) > 0 {
		fmt.Fprintf(out, " [%s]", strings.Join(info.FeatureNames, ", "))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "scaled:    %t\n", info.Scaled)
	fmt.Fprintf(out, "reference: %d %s\n", result.Label, result.Message)
	return nil
}
