// Package cli provides output helpers for the kaimono command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/recommend"
	"github.com/hyperjump/kaimono/pkg/utils"
)

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the same envelope the HTTP API returns.
	OutputJSON OutputFormat = "json"
	// OutputCompact prints one "id<TAB>score" line per recommendation.
	OutputCompact OutputFormat = "compact"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json, compact)", s)
	}
}

// WriteRecommendations writes a recommendation payload to w in the given format.
func WriteRecommendations(w io.Writer, data *models.RecommendationData, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&models.RecommendationResponse{Success: true, Data: data})
	case OutputCompact:
		for _, rec := range data.Recommendations {
			if _, err := fmt.Fprintf(w, "%s\t%.4f\n", rec.ProductID, rec.Score); err != nil {
				return err
			}
		}
		return nil
	default:
		writeRecommendationsText(w, data)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, data *models.RecommendationData) {
	fmt.Fprintf(w, "\nFound %d recommendations in %dms", data.Total, data.QueryTime)
	if data.Generation != "" {
		fmt.Fprintf(w, " (model %s)", data.Generation)
	}
	fmt.Fprint(w, "\n\n")
	for i, rec := range data.Recommendations {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, rec.ProductID, rec.Score)
		if p := rec.Product; p != nil {
			if p.Name != "" {
				fmt.Fprintf(w, "Name: %s\n", p.Name)
			}
			if p.Brand != "" || p.Category != "" {
				fmt.Fprintf(w, "Brand: %s | Category: %s\n", p.Brand, p.Category)
			}
			if p.Description != "" {
				fmt.Fprintf(w, "\n%s\n", utils.Truncate(p.Description, 200))
			}
		}
		fmt.Fprintln(w)
	}
}

// WriteStatus writes an engine status report as text or JSON.
func WriteStatus(w io.Writer, st recommend.Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Fprintf(w, "State:       %s\n", st.State)
	if st.Generation != "" {
		fmt.Fprintf(w, "Generation:  %s\n", st.Generation)
		fmt.Fprintf(w, "Trained at:  %s (%s)\n", st.TrainedAt.Format("2006-01-02 15:04:05"), st.TrainingDuration)
	}
	fmt.Fprintf(w, "Products:    %d\n", st.Products)
	fmt.Fprintf(w, "Vocabulary:  %d\n", st.Vocabulary)
	fmt.Fprintf(w, "Index:       %s\n", st.IndexType)
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error:  %s\n", st.LastError)
	}
	return nil
}

// FormatBytes returns a human-readable size (e.g. 1.2 MiB).
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
