// Package config loads the daemon's optional on-disk configuration
// file: a yaml.v3-tagged struct with environment-variable overrides,
// retargeted to a flat bind/data-dir/log shape.
package config
