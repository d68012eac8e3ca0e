// Package config loads, normalizes, and validates sdportal configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SDPORTAL_BASE_URL. The Config type centralizes every knob the CLI needs:
// the inference service endpoint, task defaults applied to a fresh builder,
// pose asset locations, and where the submission ledger and downloaded images
// live.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
