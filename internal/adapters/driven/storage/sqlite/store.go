package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/citeseek/citeseek/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
)

// Store is the SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.DocumentStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.citeseek/data/citeseek.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".citeseek", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "citeseek.db")

	// WAL mode so retrieval reads do not block ingest writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// SaveDocument stores or updates a document and its elements.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	authorsJSON, err := json.Marshal(doc.Authors)
	if err != nil {
		return fmt.Errorf("marshalling authors: %w", err)
	}
	elementsJSON, err := json.Marshal(doc.Elements)
	if err != nil {
		return fmt.Errorf("marshalling elements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, authors, publication_id, parse_strategy, elements, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			publication_id = excluded.publication_id,
			parse_strategy = excluded.parse_strategy,
			elements = excluded.elements,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Title, string(authorsJSON), doc.PublicationID,
		string(doc.ParseStrategy), string(elementsJSON), nullTime(doc.IngestedAt))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID, elements included.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, authors, publication_id, parse_strategy, elements, ingested_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var authorsJSON, elementsJSON, strategy string
	var ingestedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Title, &authorsJSON, &doc.PublicationID,
		&strategy, &elementsJSON, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(authorsJSON), &doc.Authors); err != nil {
		return nil, fmt.Errorf("unmarshaling authors: %w", err)
	}
	if err := json.Unmarshal([]byte(elementsJSON), &doc.Elements); err != nil {
		return nil, fmt.Errorf("unmarshaling elements: %w", err)
	}
	doc.ParseStrategy = domain.ParseStrategy(strategy)
	if ingestedAt.Valid {
		doc.IngestedAt = ingestedAt.Time
	}

	return &doc, nil
}

// ListDocuments returns all documents ordered by ID, without elements.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, authors, publication_id, parse_strategy, ingested_at
		FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var authorsJSON, strategy string
		var ingestedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &authorsJSON, &doc.PublicationID,
			&strategy, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(authorsJSON), &doc.Authors); err != nil {
			return nil, fmt.Errorf("unmarshaling authors: %w", err)
		}
		doc.ParseStrategy = domain.ParseStrategy(strategy)
		if ingestedAt.Valid {
			doc.IngestedAt = ingestedAt.Time
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document; its chunks go with it via the
// foreign key cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Chunks ====================

// SaveChunks stores chunks, replacing existing rows with the same IDs.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, type, section, content, position, span_start, span_end, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			type = excluded.type,
			section = excluded.section,
			content = excluded.content,
			position = excluded.position,
			span_start = excluded.span_start,
			span_end = excluded.span_end,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, string(chunk.Type),
			chunk.Section, chunk.Text, chunk.Position,
			chunk.Span.Start, chunk.Span.End, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, type, section, content, position, span_start, span_end, embedding
		FROM chunks WHERE id = ?
	`, id)

	return scanChunkRow(row)
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, type, section, content, position, span_start, span_end, embedding
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// ListChunks returns every chunk ordered by ID.
func (s *Store) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, type, section, content, position, span_start, span_end, embedding
		FROM chunks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// ==================== Index metadata ====================

// GetIndexMeta returns the embedding configuration the index was built
// with.
func (s *Store) GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT embedding_model, dimensions, created_at FROM index_meta WHERE id = 1
	`)

	var meta domain.IndexMeta
	if err := row.Scan(&meta.EmbeddingModel, &meta.Dimensions, &meta.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning index meta: %w", err)
	}

	return &meta, nil
}

// SaveIndexMeta stores the embedding configuration.
func (s *Store) SaveIndexMeta(ctx context.Context, meta domain.IndexMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_meta (id, embedding_model, dimensions, created_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding_model = excluded.embedding_model,
			dimensions = excluded.dimensions,
			created_at = excluded.created_at
	`, meta.EmbeddingModel, meta.Dimensions, meta.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving index meta: %w", err)
	}
	return nil
}

// ==================== Statistics ====================

// Stats aggregates corpus statistics from the stored chunks. SQLite's
// LENGTH() counts characters on TEXT values, matching the rune-based
// chunk sizes used everywhere else.
func (s *Store) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	stats := &domain.CorpusStats{
		ChunksByType: make(map[domain.ChunkType]int),
	}

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents")
	if err := row.Scan(&stats.Documents); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT type, LENGTH(content) FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("querying chunk sizes: %w", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var chunkType string
		var size int
		if err := rows.Scan(&chunkType, &size); err != nil {
			return nil, fmt.Errorf("scanning chunk size: %w", err)
		}

		stats.Chunks++
		stats.ChunksByType[domain.ChunkType(chunkType)]++
		total += size
		if stats.MinChunkSize == 0 || size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk sizes: %w", err)
	}
	if stats.Chunks > 0 {
		stats.MeanChunkSize = float64(total) / float64(stats.Chunks)
	}

	meta, err := s.GetIndexMeta(ctx)
	switch {
	case err == nil:
		stats.EmbeddingModel = meta.EmbeddingModel
		stats.EmbeddingDimensions = meta.Dimensions
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return stats, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var chunkType string
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunkType, &chunk.Section,
		&chunk.Text, &chunk.Position, &chunk.Span.Start, &chunk.Span.End, &embeddingBlob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Type = domain.ChunkType(chunkType)
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// collectChunks scans all chunks from *sql.Rows.
func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var chunkType string
		var embeddingBlob []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunkType, &chunk.Section,
			&chunk.Text, &chunk.Position, &chunk.Span.Start, &chunk.Span.End, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.Type = domain.ChunkType(chunkType)
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
