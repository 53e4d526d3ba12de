// Package config provides configuration loading and validation for the duet scoring service.
// It handles YAML-based configuration with struct validation and exposes every tuned
// scoring constant (zone boundaries, similarity thresholds, penalties) as a setting.
package config
