// Package config loads the ground station daemon configuration.
//
// Values are layered: Baseline() defaults, then an optional YAML file
// (GSD_CONFIG, or config/gsd.yaml when present), then GSD_* environment
// overrides. The merged result is validated before it is returned.
package config
