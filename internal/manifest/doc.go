// Package manifest reads addon list files: YAML documents naming a set of
// addons to install together, validated against an embedded JSON schema
// before they are decoded.
package manifest
