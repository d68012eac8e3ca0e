package task

// LoraArgs is the editable LoRA selection. Weight is a fraction in [0, 1].
type LoraArgs struct {
	Model  string  `json:"model"`
	Weight float64 `json:"weight"`
}

// ControlNetArgs is the editable ControlNet selection. Weight is a fraction in
// [0, 1]; the model and image are filled in during derivation.
type ControlNetArgs struct {
	Model        string  `json:"model"`
	Weight       float64 `json:"weight"`
	ImageDataURL string  `json:"image_dataurl"`
}

// TaskConfig holds sampling parameters. Seed is kept for editing only; every
// derivation replaces it.
type TaskConfig struct {
	ImageWidth    int   `json:"image_width"`
	ImageHeight   int   `json:"image_height"`
	Steps         int   `json:"steps"`
	NumImages     int   `json:"num_images"`
	Seed          int64 `json:"seed"`
	SafetyChecker bool  `json:"safety_checker"`
	CFG           int   `json:"cfg"`
}

// TaskArgs is the editable form of the task_args payload.
type TaskArgs struct {
	BaseModel      string         `json:"base_model"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt"`
	Lora           LoraArgs       `json:"lora"`
	ControlNet     ControlNetArgs `json:"controlnet"`
	TaskConfig     TaskConfig     `json:"task_config"`
}

// InferenceTask is the root entity a user edits and submits. It holds only
// values, so assignment copies it completely.
type InferenceTask struct {
	TaskID                string        `json:"task_id"`
	BaseModelType         BaseModelType `json:"base_model_type"`
	CustomLoraReferenceID string        `json:"custom_lora_reference_id"`
	Pose                  Pose          `json:"pose"`
	TaskArgs              TaskArgs      `json:"task_args"`
}

const defaultAdapterWeight = 0.8

// NewInferenceTask returns a task with the family's default model and the
// stock sampling parameters.
func NewInferenceTask(t BaseModelType) InferenceTask {
	task := InferenceTask{
		BaseModelType: t,
		Pose:          NoPose,
		TaskArgs: TaskArgs{
			BaseModel: t.DefaultBaseModel(),
			Lora:      LoraArgs{Weight: defaultAdapterWeight},
			ControlNet: ControlNetArgs{
				Weight: defaultAdapterWeight,
			},
			TaskConfig: TaskConfig{
				ImageWidth:  768,
				ImageHeight: 1024,
				Steps:       40,
				NumImages:   6,
				CFG:         5,
			},
		},
	}
	if steps, cfg, ok := t.familyDefaults(); ok {
		task.TaskArgs.TaskConfig.Steps = steps
		task.TaskArgs.TaskConfig.CFG = cfg
	}
	return task
}
