package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sdportal/internal/api"
	"sdportal/internal/config"
	"sdportal/internal/imageenc"
	"sdportal/internal/logging"
	"sdportal/internal/task"
)

// taskFlags holds the task editing flags shared by args and submit. Only
// flags the user set override the configured defaults.
type taskFlags struct {
	modelType        string
	baseModel        string
	catalogDefaults  bool
	prompt           string
	negativePrompt   string
	lora             string
	loraRef          string
	loraWeight       float64
	pose             string
	controlNetWeight float64
	width            int
	height           int
	steps            int
	cfg              int
	numImages        int
	safetyChecker    bool
	taskType         int
	vramLimit        int
}

func (f *taskFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.modelType, "model-type", "", "Base model family (sd_1_5, sd_2_1, sd_xl, sd_xl_turbo)")
	flags.StringVar(&f.baseModel, "base-model", "", "Base model name; defaults to the family default")
	flags.BoolVar(&f.catalogDefaults, "catalog-defaults", false, "Use the relay catalog's recommended steps and cfg on a family change")
	flags.StringVar(&f.prompt, "prompt", "", "Prompt text")
	flags.StringVar(&f.negativePrompt, "negative-prompt", "", "Negative prompt text")
	flags.StringVar(&f.lora, "lora", "", "LoRA model name")
	flags.StringVar(&f.loraRef, "lora-ref", "", "External LoRA reference id")
	flags.Float64Var(&f.loraWeight, "lora-weight", 0, "LoRA weight in [0, 1]")
	flags.StringVar(&f.pose, "pose", "", "Pose as category:index, or none")
	flags.Float64Var(&f.controlNetWeight, "controlnet-weight", 0, "ControlNet weight in [0, 1]")
	flags.IntVar(&f.width, "width", 0, "Image width")
	flags.IntVar(&f.height, "height", 0, "Image height")
	flags.IntVar(&f.steps, "steps", 0, "Sampling steps")
	flags.IntVar(&f.cfg, "cfg", 0, "Guidance scale")
	flags.IntVar(&f.numImages, "num-images", 0, "Number of images")
	flags.BoolVar(&f.safetyChecker, "safety-checker", false, "Enable the safety checker")
	flags.IntVar(&f.taskType, "task-type", 0, "Task type sent with the submission")
	flags.IntVar(&f.vramLimit, "vram-limit", 0, "VRAM limit sent with the submission; 0 omits it")
}

// initialTask applies configured defaults to a fresh task of the configured
// family.
func initialTask(cfg *config.Config) (task.InferenceTask, error) {
	modelType, err := task.ParseBaseModelType(cfg.Task.BaseModelType)
	if err != nil {
		return task.InferenceTask{}, err
	}
	t := task.NewInferenceTask(modelType)
	if cfg.Task.BaseModel != "" {
		t.TaskArgs.BaseModel = cfg.Task.BaseModel
	}
	t.TaskArgs.Lora.Weight = cfg.Task.LoraWeight
	t.TaskArgs.ControlNet.Weight = cfg.Task.ControlNetWeight
	tc := &t.TaskArgs.TaskConfig
	tc.ImageWidth = cfg.Task.ImageWidth
	tc.ImageHeight = cfg.Task.ImageHeight
	tc.Steps = cfg.Task.Steps
	tc.CFG = cfg.Task.CFG
	tc.NumImages = cfg.Task.NumImages
	tc.SafetyChecker = cfg.Task.SafetyChecker
	return t, nil
}

// buildTask produces a builder holding the configured defaults with the
// command's flags applied in editing order.
func (c *commandContext) buildTask(cmd *cobra.Command, f *taskFlags) (*task.Builder, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	catalog, err := c.poseCatalog()
	if err != nil {
		return nil, err
	}
	initial, err := initialTask(cfg)
	if err != nil {
		return nil, err
	}

	builder := task.NewBuilder(initial, task.WithPoseCatalog(catalog))
	builder.Subscribe(func(t task.InferenceTask) {
		logger.Debug("task updated",
			logging.String("base_model_type", string(t.BaseModelType)),
			logging.String("base_model", t.TaskArgs.BaseModel),
			logging.String("pose", t.Pose.String()),
		)
	})

	changed := cmd.Flags().Changed
	if changed("model-type") || changed("base-model") {
		modelType := initial.BaseModelType
		if changed("model-type") {
			if modelType, err = task.ParseBaseModelType(f.modelType); err != nil {
				return nil, err
			}
		}
		var opts []task.ChangeOption
		if f.catalogDefaults && modelType != initial.BaseModelType {
			opt, err := c.recommendedDefaults(cmd, f.baseModel, modelType)
			if err != nil {
				return nil, err
			}
			opts = append(opts, opt)
		}
		if err := builder.ChangeBaseModel(f.baseModel, modelType, opts...); err != nil {
			return nil, err
		}
	}
	if changed("lora") {
		if err := builder.SetLoraModel(f.lora); err != nil {
			return nil, err
		}
	}
	if changed("lora-ref") {
		if err := builder.SetCustomLoraReference(f.loraRef); err != nil {
			return nil, err
		}
	}
	if changed("lora-weight") {
		if err := builder.SetLoraWeight(f.loraWeight); err != nil {
			return nil, err
		}
	}
	if changed("pose") {
		pose, err := task.ParsePose(f.pose)
		if err != nil {
			return nil, err
		}
		if pose.Selected() {
			err = builder.SetPose(pose)
		} else {
			err = builder.ClearPose()
		}
		if err != nil {
			return nil, err
		}
	}
	if changed("controlnet-weight") {
		if err := builder.SetControlNetWeight(f.controlNetWeight); err != nil {
			return nil, err
		}
	}
	if changed("prompt") {
		if err := builder.SetPrompt(f.prompt); err != nil {
			return nil, err
		}
	}
	if changed("negative-prompt") {
		if err := builder.SetNegativePrompt(f.negativePrompt); err != nil {
			return nil, err
		}
	}

	err = builder.UpdateTaskConfig(func(tc *task.TaskConfig) {
		if changed("width") {
			tc.ImageWidth = f.width
		}
		if changed("height") {
			tc.ImageHeight = f.height
		}
		if changed("steps") {
			tc.Steps = f.steps
		}
		if changed("cfg") {
			tc.CFG = f.cfg
		}
		if changed("num-images") {
			tc.NumImages = f.numImages
		}
		if changed("safety-checker") {
			tc.SafetyChecker = f.safetyChecker
		}
	})
	if err != nil {
		return nil, err
	}
	return builder, nil
}

// recommendedDefaults looks up the catalog entry for the target model and
// returns its recommended sampling parameters.
func (c *commandContext) recommendedDefaults(cmd *cobra.Command, name string, modelType task.BaseModelType) (task.ChangeOption, error) {
	relay, err := c.relayAPI(cmd)
	if err != nil {
		return nil, err
	}
	models, err := relay.Models.BaseModels(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("base models: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = modelType.DefaultBaseModel()
	}
	for _, m := range models {
		if m.Name == name {
			return task.WithRecommendedDefaults(m.DefaultSteps, m.DefaultCFG), nil
		}
	}
	return task.WithRecommendedDefaults(nil, nil), nil
}

func (f *taskFlags) submission(cmd *cobra.Command, cfg *config.Config) (api.TaskType, *int) {
	taskType := api.TaskType(cfg.Task.TaskType)
	if cmd.Flags().Changed("task-type") {
		taskType = api.TaskType(f.taskType)
	}
	vram := cfg.VRAMLimit()
	if cmd.Flags().Changed("vram-limit") {
		vram = nil
		if f.vramLimit > 0 {
			limit := f.vramLimit
			vram = &limit
		}
	}
	return taskType, vram
}

// newDeriver wires derivation to the configured pose directory and stale
// policy.
func newDeriver(cfg *config.Config, catalog *task.PoseCatalog, logger *slog.Logger) *task.Deriver {
	encoder := imageenc.New(
		imageenc.WithAssets(os.DirFS(cfg.Assets.PoseDir)),
		imageenc.WithLogger(logger),
	)
	env := task.Env{Encoder: encoder, Poses: catalog}
	return task.NewDeriver(env,
		task.WithDiscardStale(cfg.Task.DiscardStaleDerivations),
		task.WithDeriverLogger(logger),
		task.WithOnStale(func(seq, newest uint64) {
			logger.Info("derivation superseded",
				logging.Uint64("seq", seq),
				logging.Uint64("newest", newest),
			)
		}),
	)
}

func (c *commandContext) derive(ctx context.Context, builder *task.Builder) (*task.Derived, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	catalog, err := c.poseCatalog()
	if err != nil {
		return nil, err
	}
	return newDeriver(cfg, catalog, logger).Derive(ctx, builder.Snapshot())
}
