package task

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Listener receives a snapshot after every mutation.
type Listener func(InferenceTask)

// Builder owns the editable InferenceTask. It is safe for concurrent use;
// listeners run synchronously on the mutating goroutine after the lock is
// released.
type Builder struct {
	mu        sync.Mutex
	task      InferenceTask
	poses     *PoseCatalog
	listeners map[int]Listener
	nextID    int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPoseCatalog validates SetPose against catalog.
func WithPoseCatalog(catalog *PoseCatalog) BuilderOption {
	return func(b *Builder) {
		b.poses = catalog
	}
}

// NewBuilder starts from initial. An unset pose is normalized to NoPose and
// the LoRA fields are made mutually exclusive, preferring the custom reference.
func NewBuilder(initial InferenceTask, opts ...BuilderOption) *Builder {
	if !initial.Pose.Selected() {
		initial.Pose = NoPose
	}
	if initial.CustomLoraReferenceID != "" {
		initial.TaskArgs.Lora.Model = ""
	}
	b := &Builder{task: initial, listeners: make(map[int]Listener)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Builder) Snapshot() InferenceTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.task
}

// Subscribe registers fn for change notifications and returns a function that
// removes it.
func (b *Builder) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// mutate applies fn under the lock and notifies listeners if fn succeeds.
func (b *Builder) mutate(fn func(t *InferenceTask) error) error {
	b.mu.Lock()
	if err := fn(&b.task); err != nil {
		b.mu.Unlock()
		return err
	}
	snapshot := b.task
	listeners := make([]Listener, 0, len(b.listeners))
	for id := 0; id < b.nextID; id++ {
		if l, ok := b.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	b.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
	return nil
}

// ChangeOption adjusts ChangeBaseModel.
type ChangeOption func(*changeOptions)

type changeOptions struct {
	steps *int
	cfg   *int
}

// WithRecommendedDefaults supplies catalog-recommended steps and cfg that
// replace the builtin family defaults on a family change. Nil values leave
// the current setting untouched.
func WithRecommendedDefaults(steps, cfg *int) ChangeOption {
	return func(o *changeOptions) {
		o.steps = steps
		o.cfg = cfg
	}
}

// ChangeBaseModel selects a base model. An empty name picks the family
// default. When modelType differs from the current family both LoRA fields are
// cleared and family defaults for steps and cfg are applied.
func (b *Builder) ChangeBaseModel(name string, modelType BaseModelType, opts ...ChangeOption) error {
	if !modelType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBaseModelType, modelType)
	}
	var options changeOptions
	for _, opt := range opts {
		opt(&options)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = modelType.DefaultBaseModel()
	}
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.BaseModel = name
		if t.BaseModelType == modelType {
			return nil
		}
		t.BaseModelType = modelType
		t.TaskArgs.Lora.Model = ""
		t.CustomLoraReferenceID = ""

		cfg := &t.TaskArgs.TaskConfig
		if options.steps != nil || options.cfg != nil {
			if options.steps != nil {
				cfg.Steps = *options.steps
			}
			if options.cfg != nil {
				cfg.CFG = *options.cfg
			}
			return nil
		}
		if steps, cfgValue, ok := modelType.familyDefaults(); ok {
			cfg.Steps = steps
			cfg.CFG = cfgValue
		}
		return nil
	})
}

// SetCustomLoraReference sets the external LoRA reference id. A non-empty id
// clears the direct LoRA model.
func (b *Builder) SetCustomLoraReference(id string) error {
	id = strings.TrimSpace(id)
	return b.mutate(func(t *InferenceTask) error {
		t.CustomLoraReferenceID = id
		if id != "" {
			t.TaskArgs.Lora.Model = ""
		}
		return nil
	})
}

// SetLoraModel sets the direct LoRA model. A non-empty model clears the custom
// reference.
func (b *Builder) SetLoraModel(model string) error {
	model = strings.TrimSpace(model)
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.Lora.Model = model
		if model != "" {
			t.CustomLoraReferenceID = ""
		}
		return nil
	})
}

// SetLoraWeight sets the LoRA blend weight in [0, 1].
func (b *Builder) SetLoraWeight(weight float64) error {
	if err := checkWeight(weight); err != nil {
		return err
	}
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.Lora.Weight = weight
		return nil
	})
}

// SetControlNetWeight sets the ControlNet blend weight in [0, 1].
func (b *Builder) SetControlNetWeight(weight float64) error {
	if err := checkWeight(weight); err != nil {
		return err
	}
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.ControlNet.Weight = weight
		return nil
	})
}

// SetPose selects a pose. An unselected pose is the same as ClearPose.
func (b *Builder) SetPose(p Pose) error {
	if !p.Selected() {
		return b.ClearPose()
	}
	if b.poses != nil {
		if err := b.poses.Validate(p); err != nil {
			return err
		}
	}
	return b.mutate(func(t *InferenceTask) error {
		t.Pose = p
		return nil
	})
}

// ClearPose deselects the pose.
func (b *Builder) ClearPose() error {
	return b.mutate(func(t *InferenceTask) error {
		t.Pose = NoPose
		return nil
	})
}

// SetPrompt sets the positive prompt.
func (b *Builder) SetPrompt(prompt string) error {
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.Prompt = prompt
		return nil
	})
}

// SetNegativePrompt sets the negative prompt.
func (b *Builder) SetNegativePrompt(prompt string) error {
	return b.mutate(func(t *InferenceTask) error {
		t.TaskArgs.NegativePrompt = prompt
		return nil
	})
}

// UpdateTaskConfig edits sampling parameters in place.
func (b *Builder) UpdateTaskConfig(edit func(*TaskConfig)) error {
	if edit == nil {
		return nil
	}
	return b.mutate(func(t *InferenceTask) error {
		next := t.TaskArgs.TaskConfig
		edit(&next)
		if next.ImageWidth <= 0 || next.ImageHeight <= 0 {
			return fmt.Errorf("task config: image size must be positive, got %dx%d", next.ImageWidth, next.ImageHeight)
		}
		if next.Steps <= 0 || next.NumImages <= 0 {
			return fmt.Errorf("task config: steps and num_images must be positive")
		}
		if next.CFG < 0 {
			return fmt.Errorf("task config: cfg must not be negative")
		}
		t.TaskArgs.TaskConfig = next
		return nil
	})
}

// SetTaskID records the server-assigned task id.
func (b *Builder) SetTaskID(id string) error {
	return b.mutate(func(t *InferenceTask) error {
		t.TaskID = id
		return nil
	})
}

// ClearInferenceTask resets the task id so the task can be submitted again.
func (b *Builder) ClearInferenceTask() error {
	return b.SetTaskID("")
}

func checkWeight(weight float64) error {
	if math.IsNaN(weight) || weight < 0 || weight > 1 {
		return fmt.Errorf("%w: %v", ErrWeightOutOfRange, weight)
	}
	return nil
}
