// Package assembler turns the raw pages of one account into a single
// PropertyRecord.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dcad-backend/internal/assert"
	"dcad-backend/internal/extract"
	"dcad-backend/internal/record"
	"dcad-backend/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("dcad.assembler")

const (
	report_extract_section  = "engine.section"
	report_extract_document = "engine.document"
	report_extract_parse    = "engine.parse"
)

// ErrMissingAccount is returned when the account detail document is empty.
var ErrMissingAccount = errors.New("missing account document")

// Documents are the raw pages of one account. Only Account is required.
type Documents struct {
	Account                 string
	History                 string
	ExemptionDetails        string
	ExemptionDetailsHistory string

	AccountURL          string
	HistoryURL          string
	ExemptionDetailsURL string
}

// Engine extracts property records. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	tel telemetry.API
}

func NewEngine(tel telemetry.API) Engine {
	assert.NotNil(tel, "telemetry")
	return Engine{tel: telemetry.NewScopedAPI("assembler", tel)}
}

// section is one extractor run over the account page. found reports whether
// the page carried the section at all, missing sections are reported.
type section struct {
	name     string
	optional bool
	run      func(root *html.Node, out *record.PropertyRecord) (found bool)
}

var accountSections = []section{
	{
		name: "tax_year",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.TaxYear = extract.TaxYear(root)
			return out.TaxYear.Present()
		},
	},
	{
		name: "property_location",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.PropertyLocation = extract.PropertyLocation(root)
			return out.PropertyLocation.Address.Present()
		},
	},
	{
		name: "owner",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.Owner = extract.Owner(root)
			return out.Owner.OwnerName.Present()
		},
	},
	{
		name: "legal_description",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.LegalDescription = extract.LegalDescription(root)
			return len(out.LegalDescription.Lines) > 0
		},
	},
	{
		name: "value_summary",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.ValueSummary = extract.ValueSummary(root)
			return out.ValueSummary.MarketValue.Present() || out.ValueSummary.ImprovementValue.Present()
		},
	},
	{
		name:     "arb_hearing",
		optional: true,
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.ARBHearing = extract.ARBHearing(root)
			return out.ARBHearing.HearingInfo.Present()
		},
	},
	{
		name: "main_improvement",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.MainImprovement = extract.MainImprovement(root)
			return extract.MainImprovementTable(root) != nil
		},
	},
	{
		name:     "additional_improvements",
		optional: true,
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.AdditionalImprovements = extract.AdditionalImprovements(root)
			return len(out.AdditionalImprovements) > 0
		},
	},
	{
		name: "land_detail",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.LandDetail = extract.LandDetail(root)
			return extract.LandTable(root) != nil
		},
	},
	{
		name: "exemptions",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.Exemptions = extract.Exemptions(root)
			return extract.ExemptionsTable(root) != nil
		},
	},
	{
		name: "estimated_taxes",
		run: func(root *html.Node, out *record.PropertyRecord) bool {
			out.EstimatedTaxes = extract.EstimatedTaxes(root)
			return out.EstimatedTaxes.Total.Present()
		},
	},
}

func parse(doc string) (*html.Node, error) {
	return html.Parse(strings.NewReader(doc))
}

// Extract builds the record for one account. Only an empty account document
// is an error, every other missing piece leaves its part of the record
// absent and is reported as a warning.
func (e Engine) Extract(ctx context.Context, docs Documents) (record.PropertyRecord, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("dcad.account_url", docs.AccountURL))

	if strings.TrimSpace(docs.Account) == "" {
		err := fmt.Errorf("extract: %w", ErrMissingAccount)
		span.SetStatus(codes.Error, err.Error())
		return record.PropertyRecord{}, err
	}

	root, err := parse(docs.Account)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return record.PropertyRecord{}, fmt.Errorf("extract: parse account: %w", err)
	}

	out := record.Empty()
	for _, s := range accountSections {
		e.runSection(ctx, s, root, &out, docs.AccountURL)
	}

	if root := e.optionalDocument(ctx, "history", docs.History); root != nil {
		out.History = extract.History(root)
	}
	if root := e.optionalDocument(ctx, "exemption_details", docs.ExemptionDetails); root != nil {
		out.ExemptionDetails = extract.ExemptionDetails(root)
	}
	if root := e.optionalDocument(ctx, "exemption_details_history", docs.ExemptionDetailsHistory); root != nil {
		out.ExemptionsTable = extract.ExemptionDetailsHistory(root)
	}

	backfill(&out, docs)
	return out, nil
}

func (e Engine) runSection(ctx context.Context, s section, root *html.Node, out *record.PropertyRecord, source string) {
	_, span := tracer.Start(ctx, "section:"+s.name)
	defer span.End()

	found := s.run(root, out)
	span.SetAttributes(attribute.Bool("dcad.section_found", found))
	if !found && !s.optional {
		e.tel.ReportWarning(report_extract_section, s.name, source)
	}
}

// optionalDocument parses a secondary page, an empty or unparseable page is
// reported and yields nil.
func (e Engine) optionalDocument(ctx context.Context, name, doc string) *html.Node {
	_, span := tracer.Start(ctx, "document:"+name)
	defer span.End()

	if strings.TrimSpace(doc) == "" {
		span.SetAttributes(attribute.Bool("dcad.document_present", false))
		e.tel.ReportWarning(report_extract_document, name)
		return nil
	}
	root, err := parse(doc)
	if err != nil {
		span.RecordError(err)
		e.tel.ReportBroken(report_extract_parse, name, err)
		return nil
	}
	return root
}
