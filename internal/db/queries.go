package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries are written with `?` placeholders and rebound to `$n` for
// postgres.
type Queries struct {
	db      DBTX
	dialect string
}

func New(db DBTX, dialect string) *Queries {
	return &Queries{db: db, dialect: dialect}
}

// Rebind rewrites `?` placeholders into the numbered form postgres expects.
func Rebind(dialect, query string) string {
	if dialect != "postgres" {
		return query
	}
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString("$" + strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) error {
	_, err := q.db.ExecContext(ctx, Rebind(q.dialect, query), args...)
	return err
}

type UpsertAccountParams struct {
	AccountID        string
	Address          sql.NullString
	NeighborhoodCode sql.NullString
	Mapsco           sql.NullString
	Subdivision      sql.NullString
	UpdatedAt        string
}

const upsertAccount = `INSERT INTO accounts (account_id, address, neighborhood_code, mapsco, subdivision, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id) DO UPDATE SET
    address = COALESCE(excluded.address, accounts.address),
    neighborhood_code = COALESCE(excluded.neighborhood_code, accounts.neighborhood_code),
    mapsco = COALESCE(excluded.mapsco, accounts.mapsco),
    subdivision = COALESCE(excluded.subdivision, accounts.subdivision),
    updated_at = excluded.updated_at`

func (q *Queries) UpsertAccount(ctx context.Context, arg UpsertAccountParams) error {
	return q.exec(ctx, upsertAccount,
		arg.AccountID, arg.Address, arg.NeighborhoodCode, arg.Mapsco, arg.Subdivision, arg.UpdatedAt,
	)
}

type Snapshot struct {
	SnapshotID    string
	AccountID     string
	TaxYear       sql.NullInt64
	SourceURL     sql.NullString
	RunID         sql.NullString
	ParserVersion string
	Raw           string
	CreatedAt     string
}

const insertSnapshot = `INSERT INTO record_snapshots
    (snapshot_id, account_id, tax_year, source_url, run_id, parser_version, raw, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnapshot(ctx context.Context, arg Snapshot) error {
	return q.exec(ctx, insertSnapshot,
		arg.SnapshotID, arg.AccountID, arg.TaxYear, arg.SourceURL, arg.RunID,
		arg.ParserVersion, arg.Raw, arg.CreatedAt,
	)
}

const latestSnapshot = `SELECT snapshot_id, account_id, tax_year, source_url, run_id, parser_version, raw, created_at
FROM record_snapshots
WHERE account_id = ?
ORDER BY created_at DESC, snapshot_id DESC
LIMIT 1`

func (q *Queries) LatestSnapshot(ctx context.Context, accountID string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, Rebind(q.dialect, latestSnapshot), accountID)
	var s Snapshot
	err := row.Scan(
		&s.SnapshotID, &s.AccountID, &s.TaxYear, &s.SourceURL, &s.RunID,
		&s.ParserVersion, &s.Raw, &s.CreatedAt,
	)
	return s, err
}

type ValueSummaryParams struct {
	AccountID               string
	CertifiedYear           sql.NullInt64
	ImprovementValue        sql.NullInt64
	LandValue               sql.NullInt64
	MarketValue             sql.NullInt64
	CappedValue             sql.NullInt64
	TaxAgent                sql.NullString
	RevaluationYear         sql.NullInt64
	PreviousRevaluationYear sql.NullInt64
	UpdatedAt               string
}

const upsertValueSummary = `INSERT INTO value_summary_current (
    account_id, certified_year, improvement_value, land_value, market_value, capped_value,
    tax_agent, revaluation_year, previous_revaluation_year, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id) DO UPDATE SET
    certified_year = excluded.certified_year,
    improvement_value = excluded.improvement_value,
    land_value = excluded.land_value,
    market_value = excluded.market_value,
    capped_value = excluded.capped_value,
    tax_agent = excluded.tax_agent,
    revaluation_year = excluded.revaluation_year,
    previous_revaluation_year = excluded.previous_revaluation_year,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertValueSummary(ctx context.Context, arg ValueSummaryParams) error {
	return q.exec(ctx, upsertValueSummary,
		arg.AccountID, arg.CertifiedYear, arg.ImprovementValue, arg.LandValue, arg.MarketValue,
		arg.CappedValue, arg.TaxAgent, arg.RevaluationYear, arg.PreviousRevaluationYear, arg.UpdatedAt,
	)
}

type PrimaryImprovementParams struct {
	AccountID          string
	BuildingClass      sql.NullString
	YearBuilt          sql.NullInt64
	EffectiveYearBuilt sql.NullInt64
	ActualAge          sql.NullInt64
	Desirability       sql.NullString
	LivingAreaSqft     sql.NullInt64
	TotalLivingArea    sql.NullInt64
	Stories            sql.NullFloat64
	StoriesRaw         sql.NullString
	ConstructionType   sql.NullString
	Foundation         sql.NullString
	BathsFull          sql.NullInt64
	BathsHalf          sql.NullInt64
	BedroomCount       sql.NullInt64
	Basement           sql.NullBool
	Pool               sql.NullBool
	Spa                sql.NullBool
	Sprinkler          sql.NullBool
	UpdatedAt          string
}

const upsertPrimaryImprovement = `INSERT INTO primary_improvements (
    account_id, building_class, year_built, effective_year_built, actual_age, desirability,
    living_area_sqft, total_living_area, stories, stories_raw, construction_type, foundation,
    baths_full, baths_half, bedroom_count, basement, pool, spa, sprinkler, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id) DO UPDATE SET
    building_class = excluded.building_class,
    year_built = excluded.year_built,
    effective_year_built = excluded.effective_year_built,
    actual_age = excluded.actual_age,
    desirability = excluded.desirability,
    living_area_sqft = excluded.living_area_sqft,
    total_living_area = excluded.total_living_area,
    stories = excluded.stories,
    stories_raw = excluded.stories_raw,
    construction_type = excluded.construction_type,
    foundation = excluded.foundation,
    baths_full = excluded.baths_full,
    baths_half = excluded.baths_half,
    bedroom_count = excluded.bedroom_count,
    basement = excluded.basement,
    pool = excluded.pool,
    spa = excluded.spa,
    sprinkler = excluded.sprinkler,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertPrimaryImprovement(ctx context.Context, arg PrimaryImprovementParams) error {
	return q.exec(ctx, upsertPrimaryImprovement,
		arg.AccountID, arg.BuildingClass, arg.YearBuilt, arg.EffectiveYearBuilt, arg.ActualAge,
		arg.Desirability, arg.LivingAreaSqft, arg.TotalLivingArea, arg.Stories, arg.StoriesRaw,
		arg.ConstructionType, arg.Foundation, arg.BathsFull, arg.BathsHalf, arg.BedroomCount,
		arg.Basement, arg.Pool, arg.Spa, arg.Sprinkler, arg.UpdatedAt,
	)
}

// ClearAccountRows removes the replaceable per-row tables of an account
// before they are written again.
func (q *Queries) ClearAccountRows(ctx context.Context, accountID string) error {
	for _, table := range []string{"owner_parties", "secondary_improvements", "land_detail"} {
		err := q.exec(ctx, "DELETE FROM "+table+" WHERE account_id = ?", accountID)
		if err != nil {
			return err
		}
	}
	return nil
}

type OwnerPartyParams struct {
	AccountID      string
	Seq            int
	OwnerName      sql.NullString
	OwnershipPct   sql.NullFloat64
	MailingAddress sql.NullString
}

func (q *Queries) InsertOwnerParty(ctx context.Context, arg OwnerPartyParams) error {
	return q.exec(ctx,
		`INSERT INTO owner_parties (account_id, seq, owner_name, ownership_pct, mailing_address) VALUES (?, ?, ?, ?, ?)`,
		arg.AccountID, arg.Seq, arg.OwnerName, arg.OwnershipPct, arg.MailingAddress,
	)
}

type SecondaryImprovementParams struct {
	AccountID    string
	Seq          int
	ImpNum       sql.NullString
	ImpType      sql.NullString
	ImpDesc      sql.NullString
	YearBuilt    sql.NullInt64
	Construction sql.NullString
	FloorType    sql.NullString
	ExtWall      sql.NullString
	NumStories   sql.NullFloat64
	AreaSqft     sql.NullInt64
	Value        sql.NullInt64
	Depreciation sql.NullFloat64
}

const insertSecondaryImprovement = `INSERT INTO secondary_improvements (
    account_id, seq, imp_num, imp_type, imp_desc, year_built, construction, floor_type,
    ext_wall, num_stories, area_sqft, value, depreciation
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSecondaryImprovement(ctx context.Context, arg SecondaryImprovementParams) error {
	return q.exec(ctx, insertSecondaryImprovement,
		arg.AccountID, arg.Seq, arg.ImpNum, arg.ImpType, arg.ImpDesc, arg.YearBuilt, arg.Construction,
		arg.FloorType, arg.ExtWall, arg.NumStories, arg.AreaSqft, arg.Value, arg.Depreciation,
	)
}

type LandDetailParams struct {
	AccountID           string
	Seq                 int
	StateCode           sql.NullString
	Zoning              sql.NullString
	FrontageFt          sql.NullFloat64
	DepthFt             sql.NullFloat64
	AreaSqft            sql.NullFloat64
	PricingMethod       sql.NullString
	UnitPrice           sql.NullFloat64
	MarketAdjustmentPct sql.NullFloat64
	AdjustedPrice       sql.NullInt64
	AgLand              sql.NullBool
}

const insertLandDetail = `INSERT INTO land_detail (
    account_id, seq, state_code, zoning, frontage_ft, depth_ft, area_sqft, pricing_method,
    unit_price, market_adjustment_pct, adjusted_price, ag_land
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertLandDetail(ctx context.Context, arg LandDetailParams) error {
	return q.exec(ctx, insertLandDetail,
		arg.AccountID, arg.Seq, arg.StateCode, arg.Zoning, arg.FrontageFt, arg.DepthFt, arg.AreaSqft,
		arg.PricingMethod, arg.UnitPrice, arg.MarketAdjustmentPct, arg.AdjustedPrice, arg.AgLand,
	)
}

type ValueHistoryParams struct {
	AccountID       string
	TaxYear         int
	Improvement     sql.NullInt64
	Land            sql.NullInt64
	TotalMarket     sql.NullInt64
	HomesteadCapped sql.NullInt64
}

const upsertValueHistory = `INSERT INTO value_history (account_id, tax_year, improvement, land, total_market, homestead_capped)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, tax_year) DO UPDATE SET
    improvement = COALESCE(excluded.improvement, value_history.improvement),
    land = COALESCE(excluded.land, value_history.land),
    total_market = COALESCE(excluded.total_market, value_history.total_market),
    homestead_capped = COALESCE(excluded.homestead_capped, value_history.homestead_capped)`

func (q *Queries) UpsertValueHistory(ctx context.Context, arg ValueHistoryParams) error {
	return q.exec(ctx, upsertValueHistory,
		arg.AccountID, arg.TaxYear, arg.Improvement, arg.Land, arg.TotalMarket, arg.HomesteadCapped,
	)
}
