// Package store persists extracted property records: a raw JSON snapshot per
// extraction plus the relational projections queried by reports.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dcad-backend/internal/assert"
	"dcad-backend/internal/chrono"
	"dcad-backend/internal/db"
	"dcad-backend/internal/record"
	"dcad-backend/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dcad.store")

const (
	report_store_upsert   = "store.upsert"
	report_store_rollback = "store.rollback"
)

var ErrNotFound = errors.New("no snapshot for account")

// timestamps are stored as fixed width UTC text so they sort the same in
// every dialect
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

func New(sqldb *sql.DB, dialect string, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(sqldb, "db")
	assert.NotNil(time, "time API")
	assert.NotNil(tel, "telemetry")
	return Store{
		db:     sqldb,
		qry:    db.New(sqldb, dialect),
		makeTx: db.NewMakeTx(sqldb, dialect),
		time:   time,
		tel:    telemetry.NewScopedAPI("store", tel),
	}
}

func (s Store) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, s.db)
}

func (s Store) now() string {
	return s.time.Now().UTC().Format(timeLayout)
}

// Upsert writes a record and all of its projections in one transaction.
func (s Store) Upsert(ctx context.Context, accountID, sourceURL, runID string, r record.PropertyRecord) (err error) {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("dcad.account_id", accountID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.tel.ReportBroken(report_store_upsert, accountID, err)
		}
	}()

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("upsert %s: marshal: %w", accountID, err)
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return fmt.Errorf("upsert %s: begin: %w", accountID, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := discard(); rerr != nil {
			s.tel.ReportBroken(report_store_rollback, accountID, rerr)
		}
	}()

	now := s.now()
	if err = writeRecord(ctx, tx, accountID, now, r); err != nil {
		return fmt.Errorf("upsert %s: %w", accountID, err)
	}
	err = tx.InsertSnapshot(ctx, db.Snapshot{
		SnapshotID:    uuid.NewString(),
		AccountID:     accountID,
		TaxYear:       intOrNull(r.TaxYear),
		SourceURL:     nullString(sourceURL),
		RunID:         nullString(runID),
		ParserVersion: r.ParserVersion,
		Raw:           string(raw),
		CreatedAt:     now,
	})
	if err != nil {
		return fmt.Errorf("upsert %s: snapshot: %w", accountID, err)
	}
	if err = commit(); err != nil {
		return fmt.Errorf("upsert %s: commit: %w", accountID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func writeRecord(ctx context.Context, tx *db.Queries, accountID, now string, r record.PropertyRecord) error {
	var subdivision sql.NullString
	if len(r.LegalDescription.Lines) > 0 {
		subdivision = nullString(r.LegalDescription.Lines[0])
	}
	err := tx.UpsertAccount(ctx, db.UpsertAccountParams{
		AccountID:        accountID,
		Address:          textOrNull(r.PropertyLocation.Address),
		NeighborhoodCode: textOrNull(r.PropertyLocation.Neighborhood),
		Mapsco:           textOrNull(r.PropertyLocation.Mapsco),
		Subdivision:      subdivision,
		UpdatedAt:        now,
	})
	if err != nil {
		return fmt.Errorf("account: %w", err)
	}

	vs := r.ValueSummary
	err = tx.UpsertValueSummary(ctx, db.ValueSummaryParams{
		AccountID:               accountID,
		CertifiedYear:           intOrNull(vs.CertifiedYear),
		ImprovementValue:        moneyOrNull(vs.ImprovementValue),
		LandValue:               moneyOrNull(vs.LandValue),
		MarketValue:             moneyOrNull(vs.MarketValue),
		CappedValue:             moneyOrNull(vs.CappedValue),
		TaxAgent:                textOrNull(vs.TaxAgent),
		RevaluationYear:         intOrNull(vs.RevaluationYear),
		PreviousRevaluationYear: intOrNull(vs.PreviousRevaluationYear),
		UpdatedAt:               now,
	})
	if err != nil {
		return fmt.Errorf("value summary: %w", err)
	}

	mi := r.MainImprovement
	err = tx.UpsertPrimaryImprovement(ctx, db.PrimaryImprovementParams{
		AccountID:          accountID,
		BuildingClass:      textOrNull(mi.BuildingClass),
		YearBuilt:          intOrNull(mi.YearBuilt),
		EffectiveYearBuilt: intOrNull(mi.EffectiveYearBuilt),
		ActualAge:          intOrNull(mi.ActualAge),
		Desirability:       textOrNull(mi.Desirability),
		LivingAreaSqft:     intOrNull(mi.LivingAreaSqft),
		TotalLivingArea:    intOrNull(mi.TotalLivingArea),
		Stories:            floatOrNull(mi.Stories),
		StoriesRaw:         textOrNull(mi.StoriesRaw),
		ConstructionType:   textOrNull(mi.ConstructionType),
		Foundation:         textOrNull(mi.Foundation),
		BathsFull:          intOrNull(mi.BathsFull),
		BathsHalf:          intOrNull(mi.BathsHalf),
		BedroomCount:       intOrNull(mi.BedroomCount),
		Basement:           flagOrNull(mi.Basement),
		Pool:               flagOrNull(mi.Pool),
		Spa:                flagOrNull(mi.Spa),
		Sprinkler:          flagOrNull(mi.Sprinkler),
		UpdatedAt:          now,
	})
	if err != nil {
		return fmt.Errorf("primary improvement: %w", err)
	}

	if err = tx.ClearAccountRows(ctx, accountID); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if err = writeOwners(ctx, tx, accountID, r.Owner); err != nil {
		return fmt.Errorf("owners: %w", err)
	}
	for i, row := range r.AdditionalImprovements {
		err = tx.InsertSecondaryImprovement(ctx, db.SecondaryImprovementParams{
			AccountID:    accountID,
			Seq:          i + 1,
			ImpNum:       textOrNull(row.ImpNum),
			ImpType:      textOrNull(row.ImpType),
			ImpDesc:      textOrNull(row.ImpDesc),
			YearBuilt:    intOrNull(row.YearBuilt),
			Construction: textOrNull(row.Construction),
			FloorType:    textOrNull(row.FloorType),
			ExtWall:      textOrNull(row.ExtWall),
			NumStories:   floatOrNull(row.NumStories),
			AreaSqft:     intOrNull(row.AreaSqft),
			Value:        moneyOrNull(row.Value),
			Depreciation: percentOrNull(row.Depreciation),
		})
		if err != nil {
			return fmt.Errorf("secondary improvement %d: %w", i+1, err)
		}
	}
	for i, row := range r.LandDetail {
		err = tx.InsertLandDetail(ctx, db.LandDetailParams{
			AccountID:           accountID,
			Seq:                 i + 1,
			StateCode:           textOrNull(row.StateCode),
			Zoning:              textOrNull(row.Zoning),
			FrontageFt:          floatOrNull(row.FrontageFt),
			DepthFt:             floatOrNull(row.DepthFt),
			AreaSqft:            floatOrNull(row.AreaSqft),
			PricingMethod:       textOrNull(row.PricingMethod),
			UnitPrice:           percentOrNull(row.UnitPrice),
			MarketAdjustmentPct: percentOrNull(row.MarketAdjustmentPct),
			AdjustedPrice:       moneyOrNull(row.AdjustedPrice),
			AgLand:              flagOrNull(row.AgLand),
		})
		if err != nil {
			return fmt.Errorf("land %d: %w", i+1, err)
		}
	}
	for _, e := range r.History.MarketValue {
		err = tx.UpsertValueHistory(ctx, db.ValueHistoryParams{
			AccountID:       accountID,
			TaxYear:         e.Year,
			Improvement:     moneyOrNull(e.Improvement),
			Land:            moneyOrNull(e.Land),
			TotalMarket:     moneyOrNull(e.TotalMarket),
			HomesteadCapped: moneyOrNull(e.HomesteadCapped),
		})
		if err != nil {
			return fmt.Errorf("value history %d: %w", e.Year, err)
		}
	}
	return nil
}

// writeOwners stores the multi-owner grid when present, otherwise the
// single owner with their mailing address.
func writeOwners(ctx context.Context, tx *db.Queries, accountID string, owner record.Owner) error {
	if len(owner.MultiOwner) == 0 {
		if !owner.OwnerName.Present() {
			return nil
		}
		return tx.InsertOwnerParty(ctx, db.OwnerPartyParams{
			AccountID:      accountID,
			Seq:            1,
			OwnerName:      textOrNull(owner.OwnerName),
			OwnershipPct:   sql.NullFloat64{Float64: 100, Valid: true},
			MailingAddress: textOrNull(owner.MailingAddress),
		})
	}
	for i, o := range owner.MultiOwner {
		err := tx.InsertOwnerParty(ctx, db.OwnerPartyParams{
			AccountID:    accountID,
			Seq:          i + 1,
			OwnerName:    textOrNull(o.OwnerName),
			OwnershipPct: percentOrNull(o.OwnershipPct),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is a stored extraction.
type Snapshot struct {
	ID        string
	AccountID string
	SourceURL string
	RunID     string
	CreatedAt time.Time
	Raw       json.RawMessage
}

// Record decodes the raw snapshot back into a record.
func (s Snapshot) Record() (record.PropertyRecord, error) {
	out := record.Empty()
	err := json.Unmarshal(s.Raw, &out)
	return out, err
}

// Snapshot returns the latest stored snapshot of an account, or ErrNotFound.
func (s Store) Snapshot(ctx context.Context, accountID string) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Snapshot")
	defer span.End()

	row, err := s.qry.LatestSnapshot(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", accountID, err)
	}
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: created_at: %w", accountID, err)
	}
	return Snapshot{
		ID:        row.SnapshotID,
		AccountID: row.AccountID,
		SourceURL: row.SourceURL.String,
		RunID:     row.RunID.String,
		CreatedAt: created,
		Raw:       json.RawMessage(row.Raw),
	}, nil
}
