// Package installer places addon files into a server's mods or plugins
// directory. It picks the newest version compatible with the target, streams
// the file next to its destination, verifies the provider checksum and
// renames it into place, then records the result in an installed ledger.
package installer
