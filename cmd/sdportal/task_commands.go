package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sdportal/internal/api"
	"sdportal/internal/fileutil"
	"sdportal/internal/imageenc"
	"sdportal/internal/ledger"
	"sdportal/internal/notifications"
	"sdportal/internal/textutil"
	"sdportal/internal/watcher"
)

func newArgsCommand(ctx *commandContext) *cobra.Command {
	flags := &taskFlags{}

	cmd := &cobra.Command{
		Use:   "args",
		Short: "Print the task_args payload for the given task flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := ctx.buildTask(cmd, flags)
			if err != nil {
				return err
			}
			derived, err := ctx.derive(cmd.Context(), builder)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), derived.JSON)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

type submitResult struct {
	ClientID string `json:"client_id"`
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	flags := &taskFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Derive and submit an inference task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			builder, err := ctx.buildTask(cmd, flags)
			if err != nil {
				return err
			}
			derived, err := ctx.derive(cmd.Context(), builder)
			if err != nil {
				return err
			}
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}

			taskType, vram := flags.submission(cmd, cfg)
			clientID := cfg.Service.ClientID
			receipt, err := relay.Inference.CreateTask(cmd.Context(), clientID, derived.JSON, taskType, vram)
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			taskID := receipt.ID.String()
			if taskID == "" {
				return errors.New("create task: relay returned no task id")
			}
			if receipt.ClientID != "" {
				clientID = receipt.ClientID
			}
			if err := builder.SetTaskID(taskID); err != nil {
				return err
			}

			snapshot := builder.Snapshot()
			err = ctx.withLedger(func(store *ledger.Store) error {
				_, err := store.Record(cmd.Context(), ledger.Entry{
					ClientID:  clientID,
					TaskID:    taskID,
					TaskType:  taskType,
					TaskArgs:  derived.JSON,
					BaseModel: snapshot.TaskArgs.BaseModel,
					Prompt:    snapshot.TaskArgs.Prompt,
					VRAMLimit: vram,
					NumImages: derived.Args.TaskConfig.NumImages,
					Status:    receipt.Status,
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("record task %s: %w", taskID, err)
			}
			if err := builder.ClearInferenceTask(); err != nil {
				return err
			}

			result := submitResult{ClientID: clientID, TaskID: taskID, Status: receipt.Status.String()}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted task %s (client %s)\n", taskID, clientID)
			fmt.Fprintln(out, "Run `sdportal watch` to download images when the task completes.")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// resolveClientID picks the client id for a task: the flag, then the ledger
// entry, then the configured id.
func (c *commandContext) resolveClientID(cmd *cobra.Command, flagValue, taskID string) (string, *ledger.Entry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", nil, err
	}
	var entry *ledger.Entry
	err = c.withLedger(func(store *ledger.Store) error {
		var err error
		entry, err = store.FindByTaskID(cmd.Context(), taskID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	switch {
	case strings.TrimSpace(flagValue) != "":
		return strings.TrimSpace(flagValue), entry, nil
	case entry != nil:
		return entry.ClientID, entry, nil
	default:
		return cfg.Service.ClientID, nil, nil
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the relay status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := strings.TrimSpace(args[0])
			client, entry, err := ctx.resolveClientID(cmd, clientID, taskID)
			if err != nil {
				return err
			}
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			state, err := relay.Inference.TaskStatus(cmd.Context(), client, taskID)
			if err != nil {
				return fmt.Errorf("task status: %w", err)
			}
			if entry != nil && entry.ClientID == client && entry.Status != state.Status {
				err := ctx.withLedger(func(store *ledger.Store) error {
					return store.UpdateStatus(cmd.Context(), client, taskID, state.Status, state.AbortReason)
				})
				if err != nil {
					return fmt.Errorf("update ledger: %w", err)
				}
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, state)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task:     %s\n", taskID)
			fmt.Fprintf(out, "Client:   %s\n", client)
			fmt.Fprintf(out, "Status:   %s\n", state.Status)
			fmt.Fprintf(out, "Type:     %s\n", state.TaskType)
			fmt.Fprintf(out, "Images:   %d\n", state.NumImages)
			if state.AbortReason != "" {
				fmt.Fprintf(out, "Reason:   %s\n", state.AbortReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Client id the task was submitted under")
	return cmd
}

func newImageCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "image <task-id> <n>",
		Short: "Download one result image of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			taskID := strings.TrimSpace(args[0])
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 0 {
				return fmt.Errorf("image index %q must be a non-negative integer", args[1])
			}
			client, _, err := ctx.resolveClientID(cmd, clientID, taskID)
			if err != nil {
				return err
			}
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			dataURL, err := relay.Inference.Image(cmd.Context(), client, taskID, index)
			if err != nil {
				return fmt.Errorf("download image %d: %w", index, err)
			}

			var path string
			if strings.TrimSpace(outputPath) != "" {
				_, data, err := imageenc.DecodeDataURL(dataURL)
				if err != nil {
					return err
				}
				path = outputPath
				if err := fileutil.WriteFileVerified(path, data, 0o644); err != nil {
					return err
				}
			} else {
				path, err = watcher.SaveDataURL(dataURL, filepath.Join(cfg.Paths.OutputDir, textutil.PathSegment(taskID)), strconv.Itoa(index))
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Client id the task was submitted under")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the image to this path")
	return cmd
}

type historyRow struct {
	ClientID    string `json:"client_id"`
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	BaseModel   string `json:"base_model"`
	Prompt      string `json:"prompt"`
	NumImages   int    `json:"num_images"`
	ImagesDir   string `json:"images_dir,omitempty"`
	CreatedAt   string `json:"created_at"`
	AbortReason string `json:"abort_reason,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List submitted tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []*ledger.Entry
			err := ctx.withLedger(func(store *ledger.Store) error {
				var err error
				entries, err = store.List(cmd.Context(), limit)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([]historyRow, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, historyRow{
					ClientID:    e.ClientID,
					TaskID:      e.TaskID,
					Status:      e.Status.String(),
					BaseModel:   e.BaseModel,
					Prompt:      e.Prompt,
					NumImages:   e.NumImages,
					ImagesDir:   e.ImagesDir,
					CreatedAt:   e.CreatedAt.Local().Format(time.DateTime),
					AbortReason: e.AbortReason,
				})
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for i, r := range rows {
				table = append(table, []string{
					r.TaskID,
					r.Status,
					r.BaseModel,
					textutil.Truncate(r.Prompt, 40),
					strconv.Itoa(r.NumImages),
					yesNo(entries[i].ImagesSaved),
					r.CreatedAt,
				})
			}
			writeTable(cmd, "No tasks submitted yet.",
				[]string{"Task", "Status", "Model", "Prompt", "Images", "Saved", "Created"}, table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of tasks to list (0 for all)")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll submitted tasks and save finished images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			relay, err := ctx.relayAPI(cmd)
			if err != nil {
				return err
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				w, err := watcher.New(cfg, store, relay.Inference, logger,
					watcher.WithNotifier(notifications.NewService(cfg)))
				if err != nil {
					return err
				}
				if !once {
					return w.Run(cmd.Context())
				}
				summary, err := w.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput(cmd) {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Polled %d tasks: %d changed, %d completed, %d aborted, %d images saved, %d failed\n",
					summary.Polled, summary.Changed, summary.Completed, summary.Aborted, summary.ImagesSaved, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single polling pass and exit")
	return cmd
}

var _ watcher.TaskSource = (*api.Inference)(nil)
