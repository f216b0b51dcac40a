// Package filestore persists per-user index artifacts on the local filesystem.
//
// # Layout
//
//	<root>/<user>/vectors.idx     encoded vector index
//	<root>/<user>/chunks.bin      gob-encoded ordered chunk list
//	<root>/<user>/metadata.json   ledger, human-readable JSON
//	<root>/<user>/files/<name>    uploaded source files
//
// Every artifact is written to a temporary file in the same directory and
// renamed into place, so a crash leaves either the old or the new version
// of that artifact. There is no atomicity across artifacts.
//
// User ids and filenames are validated before they touch the filesystem:
// they must be a single path element, so no request can reach outside its
// own user directory.
package filestore
