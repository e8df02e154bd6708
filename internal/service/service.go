// Package service answers record lookups, either from stored snapshots or by
// scraping the appraisal district live.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dcad-backend/internal/assembler"
	"dcad-backend/internal/assert"
	"dcad-backend/internal/record"
	"dcad-backend/internal/scrapers/dcad"
	"dcad-backend/internal/store"
	"dcad-backend/internal/telemetry"

	"github.com/google/uuid"
)

// SnapshotAPI is the "read" side, it returns what was stored by earlier
// scrapes.
//
// note: fault injection point
type SnapshotAPI interface {
	Snapshot(ctx context.Context, accountID string) (store.Snapshot, error)
}

// ScrapeAPI is the "write" side, it fetches, extracts and stores a single
// account.
//
// note: fault injection point
type ScrapeAPI interface {
	Process(ctx context.Context, runID, accountID string) (record.PropertyRecord, error)
}

// ExtractAPI extracts records from documents supplied by the caller.
type ExtractAPI interface {
	Extract(ctx context.Context, docs assembler.Documents) (record.PropertyRecord, error)
}

const (
	report_service_snapshot = "service.snapshot"
	report_service_scrape   = "service.scrape"
)

const (
	SourceStored = "stored"
	SourceLive   = "live"
)

// ErrUnavailable is returned when an account has no stored snapshot and
// live scraping is disabled.
var ErrUnavailable = errors.New("record unavailable")

type Service struct {
	extract   ExtractAPI
	snapshots SnapshotAPI
	scrape    ScrapeAPI
	tel       telemetry.API
}

type serviceConfig struct {
	snapshots SnapshotAPI
	scrape    ScrapeAPI
	tel       telemetry.API
}

type Option func(cfg *serviceConfig)

func WithSnapshots(snapshots SnapshotAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.snapshots = snapshots
	}
}

func WithScraper(scrape ScrapeAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.scrape = scrape
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

// NewService creates a Service, lookups are only possible when a snapshot
// or scrape API is given.
func NewService(extract ExtractAPI, options ...Option) Service {
	assert.NotNil(extract, "extract API implementation")

	cfg := serviceConfig{tel: telemetry.SlogAPI{}}
	for _, opt := range options {
		opt(&cfg)
	}
	return Service{
		extract:   extract,
		snapshots: cfg.snapshots,
		scrape:    cfg.scrape,
		tel:       telemetry.NewScopedAPI("service", cfg.tel),
	}
}

type Detail struct {
	AccountID  string                `json:"account_id"`
	Source     string                `json:"source"`
	SnapshotID string                `json:"snapshot_id,omitempty"`
	StoredAt   *time.Time            `json:"stored_at,omitempty"`
	Record     record.PropertyRecord `json:"record"`
}

// Detail returns the record of an account. The latest stored snapshot is
// preferred unless refresh is set, then the account is scraped live.
func (s Service) Detail(ctx context.Context, accountID string, refresh bool) (Detail, error) {
	id, err := dcad.NormalizeAccountID(accountID)
	if err != nil {
		return Detail{}, err
	}

	if !refresh && s.snapshots != nil {
		snap, err := s.snapshots.Snapshot(ctx, id)
		switch {
		case err == nil:
			rec, err := snap.Record()
			if err == nil {
				return Detail{
					AccountID:  id,
					Source:     SourceStored,
					SnapshotID: snap.ID,
					StoredAt:   &snap.CreatedAt,
					Record:     rec,
				}, nil
			}
			s.tel.ReportBroken(report_service_snapshot, id, err)
		case !errors.Is(err, store.ErrNotFound):
			s.tel.ReportBroken(report_service_snapshot, id, err)
		}
	}

	if s.scrape == nil {
		return Detail{}, fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	rec, err := s.scrape.Process(ctx, uuid.NewString(), id)
	if err != nil {
		if !errors.Is(err, dcad.ErrAccountNotFound) {
			s.tel.ReportBroken(report_service_scrape, id, err)
		}
		return Detail{}, err
	}
	return Detail{
		AccountID: id,
		Source:    SourceLive,
		Record:    rec,
	}, nil
}

// Extract runs extraction over caller supplied documents without touching
// the network or the store.
func (s Service) Extract(ctx context.Context, docs assembler.Documents) (record.PropertyRecord, error) {
	return s.extract.Extract(ctx, docs)
}
