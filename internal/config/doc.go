// Package config provides configuration structures and utilities for FixCry.
// It defines the options of a detection run (input, thresholds, weights,
// report format, history) and loads the optional YAML config file.
package config
