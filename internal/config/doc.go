// Package config loads, normalizes, and validates mediasort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIASORT_SOURCE_DIR. The Config type centralizes every knob a run needs:
// source and destination trees, dry-run and move switches, the date templates
// used to build destination names, and the policies applied when a file has
// no capture date or collides with an existing name.
//
// Configuration is read once at startup and treated as immutable afterwards.
// Unknown policy values are rejected by Validate so a run never starts with a
// setting it cannot honour.
package config
