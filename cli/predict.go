package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"cardiorisk/client"
	"cardiorisk/heart"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
		fields  heart.Fields
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask a running server for a prediction",
		Example: `  cardiorisk predict --age 63 --sex 1 --cp 3 --trestbps 145 --chol 233 --fbs 1 \
    --restecg 0 --thalach 150 --exang 0 --oldpeak 2.3 --slope 0 --ca 0 --thal 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(url,
				client.WithTimeout(timeout),
				client.WithRetries(2),
				client.WithRequestID(uuid.NewString()),
			)
			result, err := c.Predict(cmd.Context(), fields)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&url, "url", "http://localhost:8000", "Base URL of the cardiorisk server.")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout.")

	ints := []struct {
		name   string
		target *int
		usage  string
	}{
		{"age", &fields.Age, "Age in years."},
		{"sex", &fields.Sex, "Sex (1 = male, 0 = female)."},
		{"cp", &fields.Cp, "Chest pain type."},
		{"trestbps", &fields.Trestbps, "Resting blood pressure."},
		{"chol", &fields.Chol, "Serum cholesterol in mg/dl."},
		{"fbs", &fields.Fbs, "Fasting blood sugar > 120 mg/dl."},
		{"restecg", &fields.Restecg, "Resting ECG result."},
		{"thalach", &fields.Thalach, "Maximum heart rate achieved."},
		{"exang", &fields.Exang, "Exercise induced angina."},
		{"slope", &fields.Slope, "Slope of the peak exercise ST segment."},
		{"ca", &fields.Ca, "Number of major vessels colored."},
		{"thal", &fields.Thal, "Thalassemia."},
	}
	for _, f := range ints {
		flags.IntVar(f.target, f.name, 0, f.usage)
		_ = cmd.MarkFlagRequired(f.name)
	}
	flags.Float64Var(&fields.Oldpeak, "oldpeak", 0, "ST depression induced by exercise.")
	_ = cmd.MarkFlagRequired("oldpeak")

	return cmd
}
