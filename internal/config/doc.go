// Package config loads, normalizes, and validates signflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIGNFLOW_API_TOKEN and SIGNFLOW_OFFLINE. The Config type centralizes every
// knob the daemon and CLI need: session defaults, remote service endpoints,
// network behaviour, and the language detector engine.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
