package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"postback-ingest-api/internal/cache"
	"postback-ingest-api/internal/database"
	"postback-ingest-api/internal/events"
	"postback-ingest-api/internal/metrics"
	"postback-ingest-api/internal/models"
	"postback-ingest-api/internal/normalize"
	"postback-ingest-api/internal/scheme"
)

const defaultDedupTTL = 24 * time.Hour

// Service provides the postback ingest business logic.
type Service struct {
	db       *database.DB
	mappings *scheme.Mappings
	cache    cache.Cache
	events   *events.Manager
	dedupTTL time.Duration
}

// Options holds optional collaborators for the service.
type Options struct {
	Cache    cache.Cache
	Events   *events.Manager
	DedupTTL time.Duration
}

// NewService creates a new service instance with no cache or event manager.
func NewService(db *database.DB, mappings *scheme.Mappings) *Service {
	return NewServiceWithOptions(db, mappings, Options{})
}

// NewServiceWithOptions creates a new service instance with custom options.
func NewServiceWithOptions(db *database.DB, mappings *scheme.Mappings, opts Options) *Service {
	ttl := opts.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &Service{
		db:       db,
		mappings: mappings,
		cache:    opts.Cache,
		events:   opts.Events,
		dedupTTL: ttl,
	}
}

// Normalize classifies a merged parameter set and resolves it into a
// normalized postback record. Pure given fixed mappings: no I/O, no side
// effects, same input always yields the same record.
func (s *Service) Normalize(params map[string]string) (models.Postback, error) {
	partner := scheme.Detect(params)

	rawQuery, err := json.Marshal(params)
	if err != nil {
		return models.Postback{}, fmt.Errorf("failed to serialize raw query: %w", err)
	}

	resolve := func(field string) string {
		return normalize.Resolve(params, s.mappings.Candidates(partner, field))
	}

	record := models.Postback{
		Partner:       string(partner),
		ClickID:       resolve(scheme.FieldClickID),
		OfferID:       resolve(scheme.FieldOfferID),
		Goal:          resolve(scheme.FieldGoal),
		Payout:        normalize.Payout(resolve(scheme.FieldPayout)),
		Currency:      normalize.Code(resolve(scheme.FieldCurrency)),
		Geo:           normalize.Code(resolve(scheme.FieldGeo)),
		Gclid:         resolve(scheme.FieldGclid),
		TransactionID: resolve(scheme.FieldTransactionID),
		Status:        resolve(scheme.FieldStatus),
		IP:            resolve(scheme.FieldIP),
		RawQuery:      string(rawQuery),
	}
	record.DedupKey = dedupKey(record)

	return record, nil
}

// Ingest normalizes a merged parameter set and persists it as one row.
// Duplicate postbacks (network retries carrying the same transaction and
// click ids) are suppressed and reported as duplicates, not errors.
func (s *Service) Ingest(ctx context.Context, params map[string]string) (models.IngestResult, error) {
	record, err := s.Normalize(params)
	if err != nil {
		return models.IngestResult{}, err
	}

	// Fast path: a postback we have already seen recently never reaches the
	// database. Cache misses and cache errors both fall through to the
	// insert, where the unique index is authoritative.
	if s.cache != nil {
		if _, err := s.cache.Get(ctx, cache.DedupKey(record.DedupKey)); err == nil {
			s.recordDuplicate(ctx, record)
			return models.IngestResult{Record: record, Duplicate: true}, nil
		}
	}

	inserted, err := s.db.InsertPostback(ctx, record)
	if err != nil {
		metrics.InsertFailure()
		return models.IngestResult{}, fmt.Errorf("failed to persist postback: %w", err)
	}

	if !inserted {
		s.recordDuplicate(ctx, record)
		return models.IngestResult{Record: record, Duplicate: true}, nil
	}

	if s.cache != nil {
		// Best effort; the unique index already guarantees correctness.
		_ = s.cache.Set(ctx, cache.DedupKey(record.DedupKey), "1", s.dedupTTL)
	}

	metrics.PostbackReceived(record.Partner)
	if s.events != nil {
		s.events.PublishPostbackReceived(ctx, record)
	}

	return models.IngestResult{Record: record}, nil
}

func (s *Service) recordDuplicate(ctx context.Context, record models.Postback) {
	metrics.PostbackDuplicate(record.Partner)
	if s.events != nil {
		s.events.PublishPostbackDuplicate(ctx, record.Partner, record.DedupKey)
	}
}

// ClickID resolves the click id a request would normalize to, used by strict
// mode to reject requests before any persistence is attempted.
func (s *Service) ClickID(params map[string]string) string {
	partner := scheme.Detect(params)
	return normalize.Resolve(params, s.mappings.ClickIDCandidates(partner))
}

// RecentPostbacks returns the most recent stored rows, optionally filtered
// by partner.
func (s *Service) RecentPostbacks(ctx context.Context, partner string, limit int) (models.RecentPostbacksResponse, error) {
	postbacks, err := s.db.RecentPostbacks(ctx, partner, limit)
	if err != nil {
		return models.RecentPostbacksResponse{}, fmt.Errorf("failed to list postbacks: %w", err)
	}
	return models.RecentPostbacksResponse{Postbacks: postbacks}, nil
}

// Stats returns per-partner postback counts.
func (s *Service) Stats(ctx context.Context) (models.StatsResponse, error) {
	counts, err := s.db.CountByPartner(ctx)
	if err != nil {
		return models.StatsResponse{}, fmt.Errorf("failed to aggregate postbacks: %w", err)
	}
	return models.StatsResponse{Partners: counts}, nil
}

// dedupKey derives a deterministic key for duplicate suppression from the
// partner tag plus the two ids networks echo back on retries. When a request
// carries neither id there is nothing stable to key on, so the exact raw
// parameter set stands in; two byte-identical anonymous postbacks collapse,
// distinct ones do not.
func dedupKey(record models.Postback) string {
	var material string
	if record.TransactionID == "" && record.ClickID == "" {
		material = record.Partner + "|raw|" + record.RawQuery
	} else {
		material = record.Partner + "|" + record.TransactionID + "|" + record.ClickID
	}
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
