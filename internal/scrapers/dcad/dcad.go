// Package dcad fetches the account pages of the Dallas Central Appraisal
// District web application.
package dcad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"dcad-backend/internal/assembler"
	"dcad-backend/internal/assert"
	"dcad-backend/internal/telemetry"
	libtelemetry "dcad-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dcad.scraper")

const (
	report_client_history                   = "client.history"
	report_client_exemption_details         = "client.exemption-details"
	report_client_exemption_details_history = "client.exemption-details-history"
)

const (
	DefaultBaseURL = "https://www.dallascad.org"

	accountPath                 = "/AcctDetailRes.aspx"
	historyPath                 = "/AcctHistory.aspx"
	exemptionDetailsPath        = "/ExemptDetails.aspx"
	exemptionDetailsHistoryPath = "/ExemptDetailHistory.aspx"
)

var (
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrAccountNotFound  = errors.New("account not found")
)

var accountIDPattern = regexp.MustCompile(`^[A-Z0-9]{17}$`)

// NormalizeAccountID upper-cases and validates a 17 character alphanumeric
// account id.
func NormalizeAccountID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !accountIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return id, nil
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Retries is the number of retries on 429 and 5xx responses, negative
	// disables retrying.
	Retries   int
	RetryWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout == 0 {
		o.Timeout = time.Second * 30
	}
	if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryWait == 0 {
		o.RetryWait = time.Millisecond * 600
	}
	return o
}

type Client struct {
	http    *resty.Client
	baseURL string
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "telemetry")
	tel = telemetry.NewScopedAPI("dcad_scraper", tel)
	opts = opts.withDefaults()

	parsedBaseUrl, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	httpClient.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpClient.SetHeader("accept-language", "en-US,en;q=0.9")
	httpClient.SetHeader("referer", opts.BaseURL+"/")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	httpClient.SetRetryCount(opts.Retries)
	httpClient.SetRetryWaitTime(opts.RetryWait)
	httpClient.SetRetryMaxWaitTime(opts.RetryWait * 8)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		code := res.StatusCode()
		return code == 429 || code >= 500
	})

	telemetry.InstrumentResty(httpClient, tel)
	libtelemetry.InstrumentResty(httpClient, "dcad.scraper.http")

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		tel:     tel,
	}, nil
}

// Page is a fetched document and the url it was fetched from.
type Page struct {
	URL  string
	Body string
}

func (c *Client) pageURL(path, accountID string) string {
	return fmt.Sprintf("%s%s?ID=%s", c.baseURL, path, accountID)
}

func (c *Client) get(ctx context.Context, name, path, accountID string) (Page, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	id, err := NormalizeAccountID(accountID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Page{}, err
	}
	span.SetAttributes(attribute.String("dcad.account_id", id))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ID", id).
		Get(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Page{}, fmt.Errorf("%s: %w", name, err)
	}
	if res.IsError() {
		err := fmt.Errorf("%s: unexpected status %s", name, res.Status())
		span.SetStatus(codes.Error, err.Error())
		return Page{}, err
	}
	return Page{URL: c.pageURL(path, id), Body: res.String()}, nil
}

// AccountDetail fetches the residential account detail page. A page with
// neither an owner nor a value summary is reported as ErrAccountNotFound.
func (c *Client) AccountDetail(ctx context.Context, accountID string) (Page, error) {
	page, err := c.get(ctx, "AccountDetail", accountPath, accountID)
	if err != nil {
		return Page{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(page.Body))
	if err != nil {
		return Page{}, fmt.Errorf("AccountDetail: %w", err)
	}
	if doc.Find("#lblOwner, #tblValueSum").Length() == 0 {
		return Page{}, fmt.Errorf("AccountDetail: %w: %s", ErrAccountNotFound, accountID)
	}
	return page, nil
}

func (c *Client) History(ctx context.Context, accountID string) (Page, error) {
	return c.get(ctx, "History", historyPath, accountID)
}

func (c *Client) ExemptionDetails(ctx context.Context, accountID string) (Page, error) {
	return c.get(ctx, "ExemptionDetails", exemptionDetailsPath, accountID)
}

func (c *Client) ExemptionDetailsHistory(ctx context.Context, accountID string) (Page, error) {
	return c.get(ctx, "ExemptionDetailsHistory", exemptionDetailsHistoryPath, accountID)
}

// Links are the secondary pages an account detail page links to.
type Links struct {
	History                 bool
	ExemptionDetails        bool
	ExemptionDetailsHistory bool
}

func linkName(path string) string {
	return strings.ToLower(strings.TrimPrefix(path, "/"))
}

// DiscoverLinks reports which secondary pages the account page links to.
// Pages without any recognizable link are assumed to link to all of them.
func DiscoverLinks(accountBody string) Links {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(accountBody))
	if err != nil {
		return Links{true, true, true}
	}
	var out Links
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.ToLower(a.AttrOr("href", ""))
		switch {
		case strings.Contains(href, linkName(historyPath)):
			out.History = true
		case strings.Contains(href, linkName(exemptionDetailsHistoryPath)):
			out.ExemptionDetailsHistory = true
		case strings.Contains(href, linkName(exemptionDetailsPath)):
			out.ExemptionDetails = true
		}
	})
	if out == (Links{}) {
		return Links{true, true, true}
	}
	return out
}

// FetchAll fetches every page of an account. Only the account detail page is
// required, the others are reported and left empty when they fail.
func (c *Client) FetchAll(ctx context.Context, accountID string) (assembler.Documents, error) {
	ctx, span := tracer.Start(ctx, "FetchAll")
	defer span.End()

	account, err := c.AccountDetail(ctx, accountID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return assembler.Documents{}, err
	}
	docs := assembler.Documents{
		Account:    account.Body,
		AccountURL: account.URL,
	}
	links := DiscoverLinks(account.Body)

	optional := []struct {
		enabled bool
		report  string
		fetch   func(context.Context, string) (Page, error)
		body    *string
		url     *string
	}{
		{links.History, report_client_history, c.History, &docs.History, &docs.HistoryURL},
		{links.ExemptionDetails, report_client_exemption_details, c.ExemptionDetails, &docs.ExemptionDetails, &docs.ExemptionDetailsURL},
		{links.ExemptionDetailsHistory, report_client_exemption_details_history, c.ExemptionDetailsHistory, &docs.ExemptionDetailsHistory, nil},
	}
	for _, o := range optional {
		if !o.enabled {
			continue
		}
		page, err := o.fetch(ctx, accountID)
		if err != nil {
			c.tel.ReportWarning(o.report, accountID, err)
			continue
		}
		*o.body = page.Body
		if o.url != nil {
			*o.url = page.URL
		}
	}
	return docs, nil
}
