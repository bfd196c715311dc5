package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"sightline/pkg/db"
)

// Store composes all sub-interfaces for full store access. Consumers
// should depend on specific sub-interfaces when possible.
type Store interface {
	ProjectStore
	ElevationCacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Projects ---

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, data, created_at, updated_at FROM projects WHERE id = ?`, id)

	var p Project
	var updatedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Data, &p.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}

	// Transparent Decompression
	if len(p.Data) > 2 && p.Data[0] == 0x1f && p.Data[1] == 0x8b {
		if decompressed, err := decompress(p.Data); err == nil {
			p.Data = decompressed
		}
	}
	return &p, nil
}

// ListProjects returns all projects newest first, without their data
// payloads.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM projects ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Project
	for rows.Next() {
		var p Project
		var updatedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			p.UpdatedAt = updatedAt.Time
		}
		results = append(results, &p)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) SaveProject(ctx context.Context, p *Project) error {
	data := p.Data
	if compressed, err := compress(data); err == nil {
		data = compressed
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT OR REPLACE INTO projects (id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, data, createdAt, time.Now())
	return err
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// --- Elevation cache ---

func (s *SQLiteStore) GetElevation(ctx context.Context, key string) (float64, bool) {
	var v float64
	err := s.db.QueryRowContext(ctx, "SELECT elevation_m FROM elevation_cache WHERE key = ?", key).Scan(&v)
	if err != nil {
		// Treat any error as a miss, the sample is re-fetchable.
		return 0, false
	}
	return v, true
}

func (s *SQLiteStore) SetElevation(ctx context.Context, key string, elevationM float64) error {
	query := `INSERT OR REPLACE INTO elevation_cache (key, elevation_m, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, elevationM, time.Now())
	return err
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	// Get Buffer
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	// Get Writer
	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	// Reset Writer to write to our buffer
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
