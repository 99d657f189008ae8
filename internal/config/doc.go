// Package config loads the server configuration from
// ~/.astquery/config.yaml with ASTQUERY_* environment overrides.
// A missing file is not an error; defaults apply.
package config
