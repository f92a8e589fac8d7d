// Package config provides configuration structures and utilities for depscout.
// It defines the score band, the allow and ban lists, upstream endpoints and
// report preferences, and layers them from defaults, a YAML file and the
// environment.
package config
