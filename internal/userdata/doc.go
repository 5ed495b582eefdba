// Package userdata resolves where addons are installed and where the CLI
// keeps its own files. Every location can be overridden with an environment
// variable.
package userdata
