package main

import (
	"errors"

	"github.com/spf13/cobra"

	"sdportal/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, pose images, and relay access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := ctx.poseCatalog()
			if err != nil {
				return err
			}
			var relay preflight.BalanceSource
			if !offline {
				client, err := ctx.relayAPI(cmd)
				if err != nil {
					return err
				}
				relay = client.Application
			}

			results := preflight.RunAll(cmd.Context(), cfg, catalog, relay)
			if ctx.jsonOutput(cmd) {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				writeTable(cmd, "No checks ran.", []string{"Check", "Status", "Detail"}, rows, nil)
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the relay check")
	return cmd
}
