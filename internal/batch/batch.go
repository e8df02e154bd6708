// Package batch drives fetch, extract, archive and store over many accounts.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dcad-backend/internal/archive"
	"dcad-backend/internal/assembler"
	"dcad-backend/internal/assert"
	"dcad-backend/internal/record"
	"dcad-backend/internal/scrapers/dcad"
	"dcad-backend/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("dcad.batch")

const (
	report_runner_account   = "runner.account"
	report_runner_archive   = "runner.archive"
	report_runner_succeeded = "runner.succeeded"
	report_runner_failed    = "runner.failed"
)

type Fetcher interface {
	FetchAll(ctx context.Context, accountID string) (assembler.Documents, error)
}

type Extractor interface {
	Extract(ctx context.Context, docs assembler.Documents) (record.PropertyRecord, error)
}

type Sink interface {
	Upsert(ctx context.Context, accountID, sourceURL, runID string, r record.PropertyRecord) error
}

type Options struct {
	// Workers is the number of accounts processed at once, defaults to 1.
	Workers int
	// Delay is the minimum time between starting two accounts.
	Delay time.Duration
	// RunID tags every snapshot and archived page of the run, a random one
	// is generated when empty.
	RunID string
}

type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
}

// Runner processes accounts. The sink and archive are optional.
type Runner struct {
	fetch   Fetcher
	extract Extractor
	sink    Sink
	archive archive.Archive
	tel     telemetry.API
}

func NewRunner(fetch Fetcher, extract Extractor, sink Sink, arch archive.Archive, tel telemetry.API) Runner {
	assert.NotNil(fetch, "fetcher")
	assert.NotNil(extract, "extractor")
	assert.NotNil(tel, "telemetry")
	return Runner{
		fetch:   fetch,
		extract: extract,
		sink:    sink,
		archive: arch,
		tel:     telemetry.NewScopedAPI("batch", tel),
	}
}

// Process runs a single account through the pipeline.
func (r Runner) Process(ctx context.Context, runID, accountID string) (record.PropertyRecord, error) {
	ctx, span := tracer.Start(ctx, "Process")
	defer span.End()
	span.SetAttributes(attribute.String("dcad.account_id", accountID))

	out, err := r.process(ctx, runID, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (r Runner) process(ctx context.Context, runID, accountID string) (record.PropertyRecord, error) {
	id, err := dcad.NormalizeAccountID(accountID)
	if err != nil {
		return record.PropertyRecord{}, err
	}

	docs, err := r.fetch.FetchAll(ctx, id)
	if err != nil {
		return record.PropertyRecord{}, fmt.Errorf("fetch: %w", err)
	}
	rec, err := r.extract.Extract(ctx, docs)
	if err != nil {
		return record.PropertyRecord{}, fmt.Errorf("extract: %w", err)
	}

	if r.archive != nil {
		raw, err := json.Marshal(rec)
		if err == nil {
			err = archive.PutDocuments(ctx, r.archive, runID, id, docs, raw)
		}
		// archiving is best effort, the record is still stored
		if err != nil {
			r.tel.ReportWarning(report_runner_archive, id, err)
		}
	}

	if r.sink != nil {
		err = r.sink.Upsert(ctx, id, docs.AccountURL, runID, rec)
		if err != nil {
			return record.PropertyRecord{}, fmt.Errorf("store: %w", err)
		}
	}
	return rec, nil
}

// Run processes every account. A failing account never stops the others,
// all failures are returned joined.
func (r Runner) Run(ctx context.Context, accounts []string, opts Options) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("dcad.run_id", opts.RunID),
		attribute.Int("dcad.accounts", len(accounts)),
	)

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	errs := make([]error, len(accounts))
	var group errgroup.Group
	group.SetLimit(opts.Workers)

	scheduled := len(accounts)
	for i, account := range accounts {
		i, account := i, account
		if err := limiter.Wait(ctx); err != nil {
			scheduled = i
			break
		}
		group.Go(func() error {
			_, err := r.Process(ctx, opts.RunID, account)
			if err != nil {
				err = fmt.Errorf("%s: %w", account, err)
				r.tel.ReportBroken(report_runner_account, err)
			}
			errs[i] = err
			return nil
		})
	}
	group.Wait()

	summary := Summary{RunID: opts.RunID}
	for _, err := range errs[:scheduled] {
		if err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	r.tel.ReportCount(report_runner_succeeded, int64(summary.Succeeded))
	r.tel.ReportCount(report_runner_failed, int64(summary.Failed))

	if scheduled < len(accounts) {
		errs = append(errs, fmt.Errorf("%d accounts not started: %w", len(accounts)-scheduled, ctx.Err()))
	}
	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return summary, err
}
