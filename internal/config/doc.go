// Package config provides the scan configuration and its YAML file.
//
// Values are resolved in three layers: NewConfig defaults, then the config
// file (its defaults block, then the block for the scanned host), then
// flags the user set explicitly.
package config
