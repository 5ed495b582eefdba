// Package catalog defines the provider-agnostic model of the addon
// marketplace: the closed set of providers, items and their provider-scoped
// keys, versions, search requests, and the client contracts each provider
// implements. Concrete providers live in subpackages and register themselves
// with Register.
package catalog
