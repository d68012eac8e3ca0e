package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newBalanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the application wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			balance, err := relay.Application.WalletBalance(cmd.Context())
			if err != nil {
				return fmt.Errorf("wallet balance: %w", err)
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, balance)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address: %s\n", balance.Address)
			fmt.Fprintf(out, "Balance: %s\n", balance.Balance.String())
			return nil
		},
	}
}

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List relay model catalogs",
	}
	modelsCmd.AddCommand(newModelsBaseCommand(ctx))
	modelsCmd.AddCommand(newModelsLoraCommand(ctx))
	return modelsCmd
}

func newModelsBaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "base",
		Short: "List base models",
		RunE: func(cmd *cobra.Command, args []string) error {
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			models, err := relay.Models.BaseModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("base models: %w", err)
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, models)
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{m.ID.String(), m.Name, m.ModelType, optionalInt(m.DefaultSteps), optionalInt(m.DefaultCFG)})
			}
			writeTable(cmd, "No base models.",
				[]string{"ID", "Name", "Type", "Steps", "CFG"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight})
			return nil
		},
	}
}

func newModelsLoraCommand(ctx *commandContext) *cobra.Command {
	var modelType string

	cmd := &cobra.Command{
		Use:   "lora",
		Short: "List LoRA models",
		RunE: func(cmd *cobra.Command, args []string) error {
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			models, err := relay.Models.LoraModels(cmd.Context(), modelType)
			if err != nil {
				return fmt.Errorf("lora models: %w", err)
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, models)
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{m.ID.String(), m.Name, m.Model, m.ModelType})
			}
			writeTable(cmd, "No LoRA models.",
				[]string{"ID", "Name", "Model", "Type"}, rows,
				[]columnAlignment{alignRight})
			return nil
		},
	}

	cmd.Flags().StringVar(&modelType, "type", "", "Only list models for this base model type")
	return cmd
}

func newNodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List network nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			nodes, err := relay.Network.NodeStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("node stats: %w", err)
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, nodes)
			}
			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, []string{n.Address, strconv.Itoa(int(n.Status)), n.GPUModel, strconv.Itoa(n.GPUVRAM)})
			}
			writeTable(cmd, "No nodes.",
				[]string{"Address", "Status", "GPU", "VRAM"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight})
			return nil
		},
	}
}

func newPosesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poses",
		Short: "List pose categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.poseCatalog()
			if err != nil {
				return err
			}
			categories := catalog.Categories()
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, categories)
			}
			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{c.Name, c.Label, strconv.Itoa(c.Count)})
			}
			writeTable(cmd, "No poses.",
				[]string{"Category", "Label", "Images"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight})
			return nil
		},
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
