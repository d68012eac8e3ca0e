package task

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"sdportal/internal/jsonbig"
)

const (
	// MaxSeed is the inclusive upper bound of derived seeds.
	MaxSeed = 100000000

	customLoraURLPrefix = "https://civitai.com/api/download/models/"
	turboMaxSteps       = 4
	turboScheduler      = "EulerAncestralDiscreteScheduler"
)

// WireLora is the serialized LoRA block. Weight is an integer percent.
type WireLora struct {
	Model  string `json:"model"`
	Weight int    `json:"weight"`
}

// WireControlNet is the serialized ControlNet block. Weight is an integer percent.
type WireControlNet struct {
	Model        string `json:"model"`
	Weight       int    `json:"weight"`
	ImageDataURL string `json:"image_dataurl"`
}

// WireTaskConfig is the serialized sampling configuration.
type WireTaskConfig struct {
	ImageWidth    int   `json:"image_width"`
	ImageHeight   int   `json:"image_height"`
	Steps         int   `json:"steps"`
	NumImages     int   `json:"num_images"`
	Seed          int64 `json:"seed"`
	SafetyChecker bool  `json:"safety_checker"`
	CFG           int   `json:"cfg"`
}

// SchedulerArgs configures the turbo scheduler.
type SchedulerArgs struct {
	TimestepSpacing string `json:"timestep_spacing"`
}

// Scheduler is the sampler override attached to turbo tasks.
type Scheduler struct {
	Method string        `json:"method"`
	Args   SchedulerArgs `json:"args"`
}

// WireArgs is the task_args payload. Lora and ControlNet serialize as null
// when unused; Scheduler is omitted outside the turbo family.
type WireArgs struct {
	BaseModel      string          `json:"base_model"`
	Prompt         string          `json:"prompt"`
	NegativePrompt string          `json:"negative_prompt"`
	Lora           *WireLora       `json:"lora"`
	ControlNet     *WireControlNet `json:"controlnet"`
	TaskConfig     WireTaskConfig  `json:"task_config"`
	Scheduler      *Scheduler      `json:"scheduler,omitempty"`
}

// Derived is the result of one derivation.
type Derived struct {
	// Sequence is assigned by a Deriver; zero for direct Derive calls.
	Sequence uint64
	Args     WireArgs
	// JSON is the exact task_args string to submit.
	JSON string
}

// ImageEncoder converts an asset path or URL into a data URL.
type ImageEncoder interface {
	Encode(ctx context.Context, url string) (string, error)
}

// PoseResolver maps a pose to the asset path handed to the ImageEncoder.
type PoseResolver interface {
	AssetPath(p Pose) (string, error)
}

// Env carries the capabilities Derive depends on.
type Env struct {
	Encoder ImageEncoder
	// Poses resolves pose images; nil uses AssetPath without catalog checks.
	Poses PoseResolver
	// Seed draws a seed in [0, MaxSeed]; nil uses math/rand/v2.
	Seed func() int64
}

// CustomLoraURL is the download URL for a custom LoRA reference id.
func CustomLoraURL(referenceID string) string {
	return customLoraURLPrefix + referenceID
}

// Percent rescales a fractional weight to a rounded integer percent.
func Percent(weight float64) int {
	return int(math.Round(weight * 100))
}

// RandomSeed draws uniformly from [0, MaxSeed].
func RandomSeed() int64 {
	return rand.Int64N(MaxSeed + 1)
}

// Derive computes the wire payload for snapshot. It never mutates shared
// state; a pose image that cannot be encoded fails the whole derivation.
func Derive(ctx context.Context, snapshot InferenceTask, env Env) (*Derived, error) {
	args := snapshot.TaskArgs
	cfg := args.TaskConfig

	out := WireArgs{
		BaseModel:      args.BaseModel,
		Prompt:         args.Prompt,
		NegativePrompt: args.NegativePrompt,
		TaskConfig: WireTaskConfig{
			ImageWidth:    cfg.ImageWidth,
			ImageHeight:   cfg.ImageHeight,
			Steps:         cfg.Steps,
			NumImages:     cfg.NumImages,
			SafetyChecker: cfg.SafetyChecker,
			CFG:           cfg.CFG,
		},
	}

	if args.Lora.Model != "" || snapshot.CustomLoraReferenceID != "" {
		model := args.Lora.Model
		if snapshot.CustomLoraReferenceID != "" {
			model = CustomLoraURL(snapshot.CustomLoraReferenceID)
		}
		out.Lora = &WireLora{Model: model, Weight: Percent(args.Lora.Weight)}
	}

	if snapshot.Pose.Selected() {
		controlNet, err := deriveControlNet(ctx, snapshot, env)
		if err != nil {
			return nil, err
		}
		out.ControlNet = controlNet
	}

	if IsTurbo(snapshot.BaseModelType, args.BaseModel) {
		out.TaskConfig.CFG = 0
		out.TaskConfig.Steps = min(out.TaskConfig.Steps, turboMaxSteps)
		out.Scheduler = &Scheduler{
			Method: turboScheduler,
			Args:   SchedulerArgs{TimestepSpacing: "trailing"},
		}
	}

	seed := RandomSeed()
	if env.Seed != nil {
		seed = env.Seed()
	}
	if seed < 0 || seed > MaxSeed {
		return nil, fmt.Errorf("derive: seed %d outside [0, %d]", seed, MaxSeed)
	}
	out.TaskConfig.Seed = seed

	encoded, err := jsonbig.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("derive: encode task args: %w", err)
	}
	return &Derived{Args: out, JSON: string(encoded)}, nil
}

func deriveControlNet(ctx context.Context, snapshot InferenceTask, env Env) (*WireControlNet, error) {
	path := AssetPath(snapshot.Pose)
	if env.Poses != nil {
		resolved, err := env.Poses.AssetPath(snapshot.Pose)
		if err != nil {
			return nil, fmt.Errorf("derive: %w", err)
		}
		path = resolved
	}
	if env.Encoder == nil {
		return nil, fmt.Errorf("derive: no image encoder for pose %s", snapshot.Pose)
	}
	dataURL, err := env.Encoder.Encode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("derive: encode pose %s: %w", snapshot.Pose, err)
	}
	model, ok := snapshot.BaseModelType.ControlNetModel()
	if !ok {
		return nil, fmt.Errorf("derive: %w %s", ErrNoControlNetModel, snapshot.BaseModelType.DisplayName())
	}
	return &WireControlNet{
		Model:        model,
		Weight:       Percent(snapshot.TaskArgs.ControlNet.Weight),
		ImageDataURL: dataURL,
	}, nil
}
