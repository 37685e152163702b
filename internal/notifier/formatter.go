package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/recorder"
)

// FormatRetrainSuccess formats the report sent after a model was saved.
func FormatRetrainSuccess(info *model.ModelInfo, feedbackFiles int, dur time.Duration) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✅ <b>Model retrained</b> | %s\n\n", info.RetrainedDate.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", info.RunID))
	b.WriteString(fmt.Sprintf("Samples: %d (new %d, feedback files %d)\n",
		info.TrainingStats.SamplesTotal, info.TrainingStats.SamplesNew, feedbackFiles))
	b.WriteString(fmt.Sprintf("Train/Test: %d / %d\n\n", info.TrainingStats.TrainSamples, info.TrainingStats.TestSamples))

	b.WriteString("📈 <b>Test metrics:</b>\n")
	b.WriteString(fmt.Sprintf("  RMSE: %.4f\n", info.Metrics.Test.RMSE))
	b.WriteString(fmt.Sprintf("  MAE:  %.4f\n", info.Metrics.Test.MAE))
	b.WriteString(fmt.Sprintf("  R²:   %.4f\n", info.Metrics.Test.R2))

	if top := topFeatures(info.Metrics.FeatureImportance, 5); len(top) > 0 {
		b.WriteString("\n🔎 <b>Top features:</b>\n")
		for _, f := range top {
			b.WriteString(fmt.Sprintf("  %s: %.3f\n", f.name, f.weight))
		}
	}

	b.WriteString(fmt.Sprintf("\nDuration: %s", dur.Round(time.Millisecond)))
	return b.String()
}

// FormatRetrainFailure formats a failed run. The previous model stays active.
func FormatRetrainFailure(runID, stage string, err error) string {
	var b strings.Builder
	b.WriteString("❌ <b>Retraining failed</b>\n\n")
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", runID))
	b.WriteString(fmt.Sprintf("Stage: %s\n", stage))
	b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(err.Error())))
	b.WriteString("\nThe previous model is still serving.")
	return b.String()
}

// FormatStatus formats the current model and recent run history.
func FormatStatus(info *model.ModelInfo, pending, threshold int, recent []recorder.RunRecord) string {
	var b strings.Builder
	b.WriteString("📦 <b>Model status</b>\n\n")
	if info == nil {
		b.WriteString("No model has been trained yet.\n")
	} else {
		b.WriteString(fmt.Sprintf("%s v%s\n", html.EscapeString(info.Name), html.EscapeString(info.Version)))
		b.WriteString(fmt.Sprintf("Retrained: %s\n", info.RetrainedDate.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Test RMSE: %.4f | R²: %.4f\n", info.Metrics.Test.RMSE, info.Metrics.Test.R2))
		b.WriteString(fmt.Sprintf("Samples: %d\n", info.TrainingStats.SamplesTotal))
	}
	b.WriteString(fmt.Sprintf("Pending feedback: %d/%d\n", pending, threshold))

	if len(recent) > 0 {
		b.WriteString("\n<b>Recent runs:</b>\n")
		for _, r := range recent {
			line := fmt.Sprintf("  %s %s", r.StartedAt.Format("01-02 15:04"), r.Status)
			if r.Stage != "" {
				line += " @" + r.Stage
			}
			if r.Forced {
				line += " (forced)"
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n/retrain - retrain now regardless of feedback count\n/status - current model and recent runs"
}

type featureWeight struct {
	name   string
	weight float64
}

func topFeatures(imp map[string]float64, n int) []featureWeight {
	out := make([]featureWeight, 0, len(imp))
	for k, v := range imp {
		if v > 0 {
			out = append(out, featureWeight{k, v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
