package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"dcad-backend/internal/assembler"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/internal/scrapers/dcad"
	"dcad-backend/internal/service"
	"dcad-backend/internal/store"
	"dcad-backend/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	storedAccount  = "00000776533000000"
	missingAccount = "26272500060150000"
)

type fakeSnapshots struct{}

func (fakeSnapshots) Snapshot(ctx context.Context, accountID string) (store.Snapshot, error) {
	if accountID != storedAccount {
		return store.Snapshot{}, fmt.Errorf("%w: %s", store.ErrNotFound, accountID)
	}
	rec := record.Empty()
	rec.PropertyLocation.Address = normalize.Some("123 MAIN ST")
	raw, err := json.Marshal(rec)
	return store.Snapshot{ID: "snap-1", AccountID: accountID, Raw: raw}, err
}

type fakeScraper struct{}

func (fakeScraper) Process(ctx context.Context, runID, accountID string) (record.PropertyRecord, error) {
	return record.PropertyRecord{}, fmt.Errorf("fetch: %w", dcad.ErrAccountNotFound)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tel := &telemetry.Recorder{}
	svc := service.NewService(
		assembler.NewEngine(tel),
		service.WithSnapshots(fakeSnapshots{}),
		service.WithScraper(fakeScraper{}),
		service.WithCustomTelemetryAPI(tel),
	)
	return NewRouter(svc)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDetail(t *testing.T) {
	testCases := []struct {
		path   string
		status int
		code   string
	}{
		{"/detail/" + storedAccount, http.StatusOK, ""},
		{"/detail/" + missingAccount, http.StatusNotFound, "NOT_FOUND"},
		{"/detail/" + storedAccount + "?refresh=true", http.StatusNotFound, "NOT_FOUND"},
		{"/detail/abc", http.StatusBadRequest, "INVALID_ACCOUNT_ID"},
	}
	router := newTestRouter()
	for _, test := range testCases {
		t.Run(test.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, test.path, nil))
			require.Equal(t, test.status, w.Code)

			var body struct {
				Source string `json:"source"`
				Record struct {
					PropertyLocation struct {
						Address string `json:"address"`
					} `json:"property_location"`
				} `json:"record"`
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, test.code, body.Error.Code)
			if test.status == http.StatusOK {
				require.Equal(t, service.SourceStored, body.Source)
				require.Equal(t, "123 MAIN ST", body.Record.PropertyLocation.Address)
			}
		})
	}
}

const accountPage = `<html><body>
<span id="lblOwner">Owner</span>
<table id="tblValueSum"><tr><td>Market Value:</td><td>$150,000</td></tr></table>
</body></html>`

func TestExtractJSON(t *testing.T) {
	body, err := json.Marshal(map[string]string{
		"account":     accountPage,
		"account_url": "https://www.dallascad.org/AcctDetailRes.aspx?ID=" + storedAccount,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, record.ParserVersion, out["parser_version"])
	require.Contains(t, out, "estimated_taxes")
}

func TestExtractMultipart(t *testing.T) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("account", "account.html")
	require.NoError(t, err)
	_, err = part.Write([]byte(accountPage))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	newTestRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExtractMissingAccount(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty account", `{"history":"<html></html>"}`, http.StatusBadRequest, "MISSING_ACCOUNT"},
		{"malformed", `{"account":`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	router := newTestRouter()
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewReader([]byte(test.body)))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			require.Equal(t, test.status, w.Code)
			require.Contains(t, w.Body.String(), test.code)
		})
	}
}
