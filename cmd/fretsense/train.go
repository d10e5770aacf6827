package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretsense/internal/train"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the learned scorer from stored labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer st.Close()
			defer a.Close()

			report, err := a.Train(cmd.Context())
			if err != nil {
				return err
			}

			switch report.Outcome {
			case train.OutcomePromoted:
				fmt.Printf("Promoted model v%d (validation %.3f, %d examples)\n",
					report.VersionID, report.ValidationScore, report.ExampleCount)
			default:
				fmt.Printf("Training rejected: %s\n", report.Reason)
				if report.VersionID != 0 {
					fmt.Printf("Recorded as version v%d (validation %.3f)\n",
						report.VersionID, report.ValidationScore)
				}
			}
			return nil
		},
	}
}
