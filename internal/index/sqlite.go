package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// SQLiteIndex implements Reader against a SQLite annotation index.
// It also exposes the write operations used by index-building tooling
// and tests; the query-serving path never calls them.
type SQLiteIndex struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite annotation index at dbPath and
// applies pending migrations. Use ":memory:" for an ephemeral index.
func Open(dbPath string) (*SQLiteIndex, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// WAL improves read concurrency; SQLite still wants a single writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// Close releases the database handle
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// ListFiles returns every distinct file path in the index
func (s *SQLiteIndex) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT file_path FROM annotations ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		files = append(files, path)
	}
	return files, rows.Err()
}

// FileAnnotations returns all annotations within filePath, ordered by line
func (s *SQLiteIndex) FileAnnotations(ctx context.Context, filePath string) ([]*types.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		annotationSelect+" WHERE file_path = ? ORDER BY line_number", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations for %s: %w", filePath, err)
	}
	defer func() { _ = rows.Close() }()

	return scanAnnotations(rows)
}

// RootAnnotation returns the file-level annotation for filePath
func (s *SQLiteIndex) RootAnnotation(ctx context.Context, filePath string) (*types.Annotation, error) {
	row := s.db.QueryRowContext(ctx,
		annotationSelect+" WHERE file_path = ? AND (parent_id IS NULL OR parent_id = '') ORDER BY line_number LIMIT 1",
		filePath)

	ann, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load root annotation for %s: %w", filePath, err)
	}
	return ann, nil
}

// Annotation returns the annotation identified by nodeID
func (s *SQLiteIndex) Annotation(ctx context.Context, nodeID string) (*types.Annotation, error) {
	row := s.db.QueryRowContext(ctx, annotationSelect+" WHERE node_id = ?", nodeID)

	ann, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annotation %s: %w", nodeID, err)
	}
	return ann, nil
}

// SearchContent returns line matches for text within one file
func (s *SQLiteIndex) SearchContent(ctx context.Context, filePath, text string, limit int) ([]ContentMatch, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, line_number, line_text FROM file_lines
		 WHERE file_path = ? AND line_text LIKE ? ESCAPE '\'
		 ORDER BY line_number LIMIT ?`,
		filePath, "%"+escapeLike(text)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search content in %s: %w", filePath, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []ContentMatch
	for rows.Next() {
		var m ContentMatch
		if err := rows.Scan(&m.FilePath, &m.LineNumber, &m.LineText); err != nil {
			return nil, fmt.Errorf("failed to scan content match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SearchVector scans stored embeddings and returns the annotations
// nearest to vector by cosine similarity, best first. The scan is pure
// Go; the index is expected to hold thousands of annotations, not
// millions.
func (s *SQLiteIndex) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT node_id, vector, dimension FROM embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		nodeID     string
		similarity float64
	}
	var candidates []scored

	for rows.Next() {
		var nodeID string
		var blob []byte
		var dim int
		if err := rows.Scan(&nodeID, &blob, &dim); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		stored, err := DeserializeVector(blob, dim)
		if err != nil {
			// A corrupt embedding row must not abort the search
			continue
		}
		if len(stored) != len(vector) {
			continue
		}
		candidates = append(candidates, scored{nodeID: nodeID, similarity: CosineSimilarity(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]VectorMatch, 0, len(candidates))
	for _, c := range candidates {
		ann, err := s.Annotation(ctx, c.nodeID)
		if err != nil {
			continue
		}
		matches = append(matches, VectorMatch{Annotation: ann, Similarity: c.similarity})
	}

	return matches, nil
}

// SearchSignatures looks up annotations by signature
func (s *SQLiteIndex) SearchSignatures(ctx context.Context, signature string, exact bool, caseSensitive bool, limit int) ([]*types.Annotation, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	var err error
	if exact {
		if caseSensitive {
			rows, err = s.db.QueryContext(ctx,
				annotationSelect+" WHERE signature = ? LIMIT ?", strings.TrimSpace(signature), limit)
		} else {
			rows, err = s.db.QueryContext(ctx,
				annotationSelect+" WHERE signature_norm = ? LIMIT ?", NormalizeSignature(signature), limit)
		}
	} else {
		rows, err = s.db.QueryContext(ctx,
			annotationSelect+` WHERE signature_norm LIKE ? ESCAPE '\' LIMIT ?`,
			"%"+escapeLike(NormalizeSignature(signature))+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search signatures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAnnotations(rows)
}

// UpsertAnnotation inserts or replaces one annotation. Used by index
// tooling and tests only.
func (s *SQLiteIndex) UpsertAnnotation(ctx context.Context, ann *types.Annotation) error {
	if err := ann.Validate(); err != nil {
		return fmt.Errorf("invalid annotation: %w", err)
	}

	lastUpdated := ann.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations
		 (node_id, file_path, line_number, signature, signature_norm, summary, language, confidence, node_type, parent_id, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET
		   file_path = excluded.file_path,
		   line_number = excluded.line_number,
		   signature = excluded.signature,
		   signature_norm = excluded.signature_norm,
		   summary = excluded.summary,
		   language = excluded.language,
		   confidence = excluded.confidence,
		   node_type = excluded.node_type,
		   parent_id = excluded.parent_id,
		   last_updated = excluded.last_updated`,
		ann.NodeID, ann.FilePath, ann.LineNumber, ann.Signature, NormalizeSignature(ann.Signature),
		ann.Summary, ann.Language, ann.Confidence, ann.NodeType, ann.ParentID, lastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert annotation %s: %w", ann.NodeID, err)
	}
	return nil
}

// UpsertFileLines replaces the stored source lines for filePath
func (s *SQLiteIndex) UpsertFileLines(ctx context.Context, filePath string, lines []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM file_lines WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to clear lines for %s: %w", filePath, err)
	}
	for i, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO file_lines (file_path, line_number, line_text) VALUES (?, ?, ?)",
			filePath, i+1, line); err != nil {
			return fmt.Errorf("failed to insert line %d of %s: %w", i+1, filePath, err)
		}
	}

	return tx.Commit()
}

// UpsertEmbedding stores the vector for an annotation
func (s *SQLiteIndex) UpsertEmbedding(ctx context.Context, nodeID string, vector []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embeddings (node_id, vector, dimension) VALUES (?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET vector = excluded.vector, dimension = excluded.dimension`,
		nodeID, SerializeVector(vector), len(vector))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for %s: %w", nodeID, err)
	}
	return nil
}

const annotationSelect = `SELECT node_id, file_path, line_number, signature, summary, language, confidence, node_type, parent_id, last_updated FROM annotations`

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnnotation(row rowScanner) (*types.Annotation, error) {
	var ann types.Annotation
	var summary, language, nodeType, parentID sql.NullString
	err := row.Scan(&ann.NodeID, &ann.FilePath, &ann.LineNumber, &ann.Signature,
		&summary, &language, &ann.Confidence, &nodeType, &parentID, &ann.LastUpdated)
	if err != nil {
		return nil, err
	}
	ann.Summary = summary.String
	ann.Language = language.String
	ann.NodeType = nodeType.String
	ann.ParentID = parentID.String
	return &ann, nil
}

func scanAnnotations(rows *sql.Rows) ([]*types.Annotation, error) {
	var anns []*types.Annotation
	for rows.Next() {
		ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

// NormalizeSignature lowercases and collapses whitespace so signature
// lookups tolerate formatting differences
func NormalizeSignature(signature string) string {
	return strings.Join(strings.Fields(strings.ToLower(signature)), " ")
}

// escapeLike escapes LIKE metacharacters in user-provided text
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// SerializeVector encodes a float32 vector as a little-endian blob
func SerializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeVector decodes a little-endian blob into a float32 vector
func DeserializeVector(blob []byte, dimension int) ([]float32, error) {
	if len(blob) != dimension*4 {
		return nil, fmt.Errorf("vector blob size %d does not match dimension %d", len(blob), dimension)
	}
	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
