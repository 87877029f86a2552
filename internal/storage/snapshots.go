package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"apidiff/internal/element"
)

// SnapshotKey identifies one cached element set.
type SnapshotKey struct {
	Artifact string
	Version  string
	Backend  string
}

func (k SnapshotKey) String() string {
	return k.Artifact + "@" + k.Version + " (" + k.Backend + ")"
}

// SnapshotInfo describes a cached snapshot without its payload.
type SnapshotInfo struct {
	SnapshotKey
	Fingerprint string
	CreatedAt   time.Time
	Elements    int
	Size        int
}

// SnapshotStore caches collected element sets keyed by artifact, version and
// backend. An entry is only served while its fingerprint matches.
type SnapshotStore struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSnapshotStore creates a store over db.
func NewSnapshotStore(db *DB) (*SnapshotStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &SnapshotStore{db: db, enc: enc, dec: dec}, nil
}

// Close releases the codec resources. The database stays open.
func (s *SnapshotStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// Get returns the cached set for key. A missing entry or one recorded with
// another fingerprint is a miss.
func (s *SnapshotStore) Get(ctx context.Context, key SnapshotKey, fingerprint string) (*element.Set, bool, error) {
	var stored string
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, payload
		FROM snapshots
		WHERE artifact = ? AND version = ? AND backend = ?
	`, key.Artifact, key.Version, key.Backend).Scan(&stored, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot lookup failed: %w", err)
	}
	if stored != fingerprint {
		s.db.logger.Debug("Snapshot is stale", "snapshot", key.String())
		return nil, false, nil
	}

	raw, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress snapshot %s: %w", key, err)
	}
	var records []element.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	set, err := element.FromRecords(records)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Put stores set under key, replacing any previous entry.
func (s *SnapshotStore) Put(ctx context.Context, key SnapshotKey, fingerprint string, set *element.Set) error {
	records, err := element.ToRecords(set)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	payload := s.enc.EncodeAll(raw, nil)

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO snapshots
				(artifact, version, backend, fingerprint, created_at, element_count, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, key.Artifact, key.Version, key.Backend, fingerprint,
			time.Now().UTC().Format(time.RFC3339), len(records), payload)
		if err != nil {
			return fmt.Errorf("store snapshot %s: %w", key, err)
		}
		return nil
	})
}

// List returns every cached snapshot ordered by artifact, version and backend.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact, version, backend, fingerprint, created_at, element_count, length(payload)
		FROM snapshots
		ORDER BY artifact, version, backend
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created string
		if err := rows.Scan(&info.Artifact, &info.Version, &info.Backend, &info.Fingerprint,
			&created, &info.Elements, &info.Size); err != nil {
			return nil, err
		}
		info.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Clear deletes the snapshots of artifact, or all snapshots when artifact
// is empty, and returns the number of deleted entries.
func (s *SnapshotStore) Clear(ctx context.Context, artifact string) (int64, error) {
	var res sql.Result
	var err error
	if artifact == "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM snapshots")
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE artifact = ?", artifact)
	}
	if err != nil {
		return 0, fmt.Errorf("clear snapshots: %w", err)
	}
	return res.RowsAffected()
}
