// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted text of an uploaded file
//   - Chunk: A retrievable unit of text; its position joins it to a vector row
//   - Ledger: The per-user record of uploaded files that drives rebuilds
//   - Retrieval: The grounded/ungrounded outcome of a query
//   - Fragment: One piece of a streamed answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
