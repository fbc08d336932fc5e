// Package domain defines the core business entities for CiteSeek.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A parsed scientific document with its structural elements
//   - Chunk: A retrieval unit extracted from a document
//   - QueryResult: A scored chunk returned by retrieval
//   - AssembledContext: The budgeted context handed to the generator
//   - Answer: A generated answer with verified citations
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
