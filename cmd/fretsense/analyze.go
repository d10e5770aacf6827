package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretsense/internal/analysis"
	"github.com/ayusman/fretsense/internal/store"
	"github.com/ayusman/fretsense/internal/technique"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var labelFlags []string
	var overwriteFlag bool

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Score playing technique in a practice clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := parseLabels(labelFlags)
			if err != nil {
				return err
			}

			_, st, a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer st.Close()
			defer a.Close()

			sessionID, result, err := a.AnalyzeClip(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Session %s\n\n", sessionID)
			fmt.Println(renderAnalysis(result))

			if len(labels) > 0 {
				if err := a.SubmitLabels(sessionID, labels, result.Features, args[0], overwriteFlag); err != nil {
					return err
				}
				fmt.Printf("\nRecorded %d label(s) for session %s\n", len(labels), sessionID)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&labelFlags, "label", nil,
		"Record a training label as aspect=good|needs_improvement (repeatable)")
	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Replace existing labels for the session")
	return cmd
}

func parseLabels(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(flags))
	for _, f := range flags {
		aspect, label, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid label %q: expected aspect=%s|%s", f, store.LabelGood, store.LabelNeedsImprovement)
		}
		labels[aspect] = label
	}
	return labels, nil
}

func renderAnalysis(result *analysis.Result) string {
	rows := make([][]string, 0, len(result.Aspects))
	for _, s := range result.Aspects {
		score := "-"
		if s.Status == technique.StatusOK {
			score = fmt.Sprintf("%.1f", s.Score)
		}
		rows = append(rows, []string{
			string(s.Aspect),
			score,
			fmt.Sprintf("%.3f", s.Mean),
			fmt.Sprintf("%d", s.SampleCount),
			string(s.Status),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Aspect", "Score", "Mean", "Samples", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))

	if result.HasComposite {
		fmt.Fprintf(&b, "\n\nComposite score: %.1f (%s)", result.Composite, result.Mode)
	} else {
		fmt.Fprintf(&b, "\n\nComposite score: not available (%s)", result.Mode)
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		for _, rec := range result.Recommendations {
			b.WriteString("\n  - ")
			b.WriteString(rec)
		}
	}
	return b.String()
}
