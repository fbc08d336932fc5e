// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CorpusReader: Reads parsed documents from the corpus directory
//   - DocumentStore: Document, chunk and index metadata persistence (SQLite)
//   - VectorIndex: Vector storage and similarity search
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Generator: Answer generation. Without it, `ask` is disabled but
//     `ingest` and `query` keep working.
//   - CorpusWatcher: Filesystem watching for continuous ingestion.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
