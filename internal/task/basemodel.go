package task

import (
	"fmt"
	"strings"
)

// BaseModelType is the base model family.
type BaseModelType string

const (
	SD15      BaseModelType = "sd_1_5"
	SD21      BaseModelType = "sd_2_1"
	SDXL      BaseModelType = "sd_xl"
	SDXLTurbo BaseModelType = "sd_xl_turbo"
)

type familyInfo struct {
	display    string
	model      string
	controlNet string
	steps      int
	cfg        int
	hasConfig  bool
}

var families = map[BaseModelType]familyInfo{
	SD15: {
		display:    "SD1.5",
		model:      "runwayml/stable-diffusion-v1-5",
		controlNet: "lllyasviel/control_v11p_sd15_openpose",
		steps:      40,
		cfg:        5,
		hasConfig:  true,
	},
	SD21: {
		display: "SD2.1",
		model:   "stabilityai/stable-diffusion-2-1",
	},
	SDXL: {
		display:    "SDXL",
		model:      "stabilityai/stable-diffusion-xl-base-1.0",
		controlNet: "thibaud/controlnet-openpose-sdxl-1.0",
	},
	SDXLTurbo: {
		display:   "SDXL Turbo",
		model:     "stabilityai/sdxl-turbo",
		steps:     1,
		cfg:       0,
		hasConfig: true,
	},
}

// BaseModelTypes lists the families in display order.
func BaseModelTypes() []BaseModelType {
	return []BaseModelType{SD15, SD21, SDXL, SDXLTurbo}
}

// ParseBaseModelType accepts a wire value such as "sd_xl", case-insensitive.
func ParseBaseModelType(value string) (BaseModelType, error) {
	t := BaseModelType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := families[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBaseModelType, value)
	}
	return t, nil
}

// Valid reports whether t is one of the known families.
func (t BaseModelType) Valid() bool {
	_, ok := families[t]
	return ok
}

// DisplayName returns the human label, or the raw value for unknown types.
func (t BaseModelType) DisplayName() string {
	if info, ok := families[t]; ok {
		return info.display
	}
	return string(t)
}

// DefaultBaseModel returns the family's default model identifier.
func (t BaseModelType) DefaultBaseModel() string {
	return families[t].model
}

// ControlNetModel returns the pose ControlNet model for the family.
func (t BaseModelType) ControlNetModel() (string, bool) {
	info, ok := families[t]
	if !ok || info.controlNet == "" {
		return "", false
	}
	return info.controlNet, true
}

// familyDefaults returns builtin steps and cfg applied on a family change.
func (t BaseModelType) familyDefaults() (steps, cfg int, ok bool) {
	info := families[t]
	return info.steps, info.cfg, info.hasConfig
}

// IsTurbo reports whether a task targets the turbo family, either by type or
// by a base model identifier naming it.
func IsTurbo(t BaseModelType, baseModel string) bool {
	return t == SDXLTurbo || strings.Contains(strings.ToLower(baseModel), "turbo")
}
