package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretsense/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer st.Close()
			defer a.Close()

			srv := server.New(server.Config{
				Store:    st,
				App:      a,
				Registry: a.Registry(),
			})

			addr := cfg.Paths.APIBind
			if bindFlag != "" {
				addr = bindFlag
			}
			fmt.Printf("Starting server on %s\n", addr)
			return srv.ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (overrides config)")
	return cmd
}
