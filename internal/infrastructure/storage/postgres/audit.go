package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appcontext "brauer/internal/core/context"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/audit"
)

// CompressionAlgo specifies the compression applied to a stored change set.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

var _ audit.Recorder = (*AuditStore)(nil)

// AuditStore persists the regulatory audit trail. Excise records feed tax
// filings, so every mutation keeps a who/what/when row. Large snapshots
// (movement fan-outs, full report payloads) are zstd-compressed.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates the audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditStore) Record(ctx context.Context, entry audit.Entry) error {
	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		return fmt.Errorf("audit without tenant scope: %w", err)
	}

	changes := entry.Changes
	var compressed []byte
	algo := CompressionNone
	if len(changes) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(changes, nil)
		changes = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO excise_audit (
			id, tenant_id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		id.New(), tenantID, entry.EntityType, entry.EntityID, entry.Action,
		appcontext.GetUserID(ctx),
		changes, compressed, algo, time.Now().UTC(),
	)
	return err
}

// EntityHistory retrieves the audit trail for an entity, newest first.
func (s *AuditStore) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		return nil, err
	}

	sql := `
		SELECT entity_type, entity_id, action, changes, changes_compressed, compression_algo
		FROM excise_audit
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var compressed []byte
		var algo CompressionAlgo
		if err := rows.Scan(&e.EntityType, &e.EntityID, &e.Action, &e.Changes, &compressed, &algo); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if algo == CompressionZstd && len(compressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit changes: %w", err)
			}
			e.Changes = decompressed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
