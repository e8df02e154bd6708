package dcad

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dcad-backend/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const testAccount = "00000776533000000"

func TestNormalizeAccountID(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		err      bool
	}{
		{input: "00000776533000000", expected: "00000776533000000"},
		{input: " 26272500060150000 ", expected: "26272500060150000"},
		{input: "0000077653300000a", expected: "0000077653300000A"},
		{input: "1234", err: true},
		{input: "00000776533000000/../x", err: true},
		{input: "", err: true},
	}
	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			id, err := NormalizeAccountID(test.input)
			if test.err {
				require.True(t, errors.Is(err, ErrInvalidAccountID))
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, id)
		})
	}
}

func TestDiscoverLinks(t *testing.T) {
	links := DiscoverLinks(`<html><body>
<a href="AcctHistory.aspx?ID=1">History</a>
<a href="ExemptDetails.aspx?ID=1">Exemption Details</a>
</body></html>`)
	require.Equal(t, Links{History: true, ExemptionDetails: true}, links)

	require.Equal(t, Links{true, true, true}, DiscoverLinks(`<html><body>no links</body></html>`))
}

func newTestClient(t *testing.T, handler http.Handler, tel telemetry.API) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL:   srv.URL,
		Retries:   2,
		RetryWait: time.Millisecond,
	}, tel)
	require.NoError(t, err)
	return client
}

func TestFetchAll(t *testing.T) {
	var historyCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/AcctDetailRes.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ID") != testAccount {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`<html><body><span id="lblOwner">Owner</span>
<a href="AcctHistory.aspx?ID=` + testAccount + `">History</a>
<a href="ExemptDetails.aspx?ID=` + testAccount + `">Exemptions</a>
</body></html>`))
	})
	mux.HandleFunc("/AcctHistory.aspx", func(w http.ResponseWriter, r *http.Request) {
		// first attempt fails and is retried
		if historyCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<html><body>history</body></html>`))
	})
	mux.HandleFunc("/ExemptDetails.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := &telemetry.Recorder{}
	client := newTestClient(t, mux, rec)

	docs, err := client.FetchAll(context.Background(), testAccount)
	require.NoError(t, err)
	require.Contains(t, docs.Account, "lblOwner")
	require.Contains(t, docs.AccountURL, "/AcctDetailRes.aspx?ID="+testAccount)
	require.Equal(t, `<html><body>history</body></html>`, docs.History)
	require.Contains(t, docs.HistoryURL, "/AcctHistory.aspx?ID="+testAccount)
	require.Empty(t, docs.ExemptionDetails)
	require.Empty(t, docs.ExemptionDetailsURL)
	require.Empty(t, docs.ExemptionDetailsHistory)
	require.Equal(t, int32(2), historyCalls.Load())

	require.Contains(t, rec.IDs(telemetry.KindWarning), "dcad_scraper: client.exemption-details")
}

func TestAccountDetailNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Account not found</body></html>`))
	}), &telemetry.Recorder{})

	_, err := client.AccountDetail(context.Background(), testAccount)
	require.True(t, errors.Is(err, ErrAccountNotFound))

	_, err = client.FetchAll(context.Background(), "bad")
	require.True(t, errors.Is(err, ErrInvalidAccountID))
}
