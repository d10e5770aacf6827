package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretsense/internal/registry"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and manage trained model versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newModelsListCommand(ctx))
	cmd.AddCommand(newModelsPromoteCommand(ctx))
	cmd.AddCommand(newModelsRollbackCommand(ctx))
	return cmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all model versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, closeFn, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			versions, err := reg.List()
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Println("No model versions recorded")
				return nil
			}

			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				active := ""
				if v.IsActive {
					active = "yes"
				}
				rows = append(rows, []string{
					strconv.FormatInt(v.VersionID, 10),
					v.CreatedAt.Format(time.RFC3339),
					strconv.Itoa(v.ExampleCount),
					fmt.Sprintf("%.3f", v.ValidationScore),
					v.Status,
					active,
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Created", "Examples", "Validation", "Status", "Active"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newModelsPromoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <version-id>",
		Short: "Activate a model version for scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return activateVersion(ctx, args[0], func(reg *registry.Registry, id int64) error {
				return reg.Promote(id)
			})
		},
	}
}

func newModelsRollbackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <version-id>",
		Short: "Roll scoring back to an earlier model version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return activateVersion(ctx, args[0], func(reg *registry.Registry, id int64) error {
				return reg.RollbackTo(id)
			})
		},
	}
}

func activateVersion(ctx *commandContext, arg string, activate func(*registry.Registry, int64) error) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version id %q", arg)
	}

	reg, closeFn, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := activate(reg, id); err != nil {
		return err
	}
	fmt.Printf("Model v%d is now active\n", id)
	return nil
}

func openRegistry(ctx *commandContext) (*registry.Registry, func() error, error) {
	_, st, err := ctx.openStore()
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.New(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return reg, st.Close, nil
}
