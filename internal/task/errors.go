package task

import "errors"

var (
	// ErrNoControlNetModel is returned when a pose is selected for a base
	// model family that has no ControlNet model.
	ErrNoControlNetModel = errors.New("no controlnet model for base model type")
	// ErrStaleDerivation marks a derivation superseded by a newer one.
	ErrStaleDerivation = errors.New("derivation superseded")
	// ErrInvalidPose marks a pose outside the catalog.
	ErrInvalidPose = errors.New("invalid pose")
	// ErrUnknownBaseModelType marks a base model type outside the closed set.
	ErrUnknownBaseModelType = errors.New("unknown base model type")
	// ErrWeightOutOfRange marks an adapter weight outside [0, 1].
	ErrWeightOutOfRange = errors.New("weight out of range")
)
