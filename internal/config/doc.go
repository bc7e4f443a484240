// Package config loads eSelector configuration.
//
// Values are layered, later sources winning:
//
//  1. Default()
//  2. config.yaml (or configs/config.yaml, or $ESELECTOR_CONFIG_FILE)
//  3. a .env file, which only fills variables not already exported
//  4. ESELECTOR_* environment variables, e.g. ESELECTOR_SERVER_PORT,
//     ESELECTOR_DATASET_FILE, ESELECTOR_FILTER_RANGE_POLICY
//
// The merged result is checked with validator struct tags before use.
package config
