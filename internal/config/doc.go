// Package config loads, normalizes, and validates converter configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// converter binaries (NGFF_BIOFORMATS2RAW, NGFF_RAW2OMETIFF). The Config type
// centralizes the output/working/log directories, converter invocation
// settings, workflow defaults and logging knobs.
package config
