// Package file provides file-based implementations of driven port interfaces.
// These adapters read operator-owned files from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based application configuration
//   - CollectionResolver: per-collection indexing rules, reloaded on change
package file
