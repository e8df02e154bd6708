package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"dcad-backend/internal/archive"
	"dcad-backend/internal/assembler"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	goodAccount    = "00000776533000000"
	missingAccount = "26272500060150000"
)

type fakeFetcher struct{}

func (fakeFetcher) FetchAll(ctx context.Context, accountID string) (assembler.Documents, error) {
	if accountID == missingAccount {
		return assembler.Documents{}, errors.New("account not found")
	}
	return assembler.Documents{
		Account:    "<html>" + accountID + "</html>",
		AccountURL: "https://example.test/AcctDetailRes.aspx?ID=" + accountID,
	}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, docs assembler.Documents) (record.PropertyRecord, error) {
	out := record.Empty()
	out.PropertyLocation.Address = normalize.Some(docs.Account)
	return out, nil
}

type upsert struct {
	accountID string
	sourceURL string
	runID     string
}

type fakeSink struct {
	mu      sync.Mutex
	upserts []upsert
}

func (s *fakeSink) Upsert(ctx context.Context, accountID, sourceURL, runID string, r record.PropertyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, upsert{accountID, sourceURL, runID})
	return nil
}

func TestRunCollectsFailures(t *testing.T) {
	sink := &fakeSink{}
	tel := &telemetry.Recorder{}
	dir := t.TempDir()
	arch, err := archive.NewLocal(dir)
	require.NoError(t, err)

	runner := NewRunner(fakeFetcher{}, fakeExtractor{}, sink, arch, tel)
	summary, err := runner.Run(context.Background(), []string{
		goodAccount,
		missingAccount,
		"bad-id",
	}, Options{Workers: 3, RunID: "run-1"})

	require.Error(t, err)
	require.Contains(t, err.Error(), missingAccount)
	require.Contains(t, err.Error(), "bad-id")
	require.Equal(t, Summary{RunID: "run-1", Succeeded: 1, Failed: 2}, summary)

	require.Len(t, sink.upserts, 1)
	require.Equal(t, upsert{
		accountID: goodAccount,
		sourceURL: "https://example.test/AcctDetailRes.aspx?ID=" + goodAccount,
		runID:     "run-1",
	}, sink.upserts[0])

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(archive.Key("run-1", goodAccount, "account.html"))))
	require.NoError(t, err)
	require.Len(t, tel.IDs(telemetry.KindBroken), 2)
}

func TestRunGeneratesRunID(t *testing.T) {
	sink := &fakeSink{}
	runner := NewRunner(fakeFetcher{}, fakeExtractor{}, sink, nil, &telemetry.Recorder{})
	summary, err := runner.Run(context.Background(), []string{goodAccount}, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, summary.RunID, sink.upserts[0].runID)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(fakeFetcher{}, fakeExtractor{}, nil, nil, &telemetry.Recorder{})
	summary, err := runner.Run(ctx, []string{goodAccount, goodAccount}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, summary.Succeeded+summary.Failed)
}

func TestReadAccounts(t *testing.T) {
	dir := t.TempDir()
	withHeader := filepath.Join(dir, "header.csv")
	require.NoError(t, os.WriteFile(withHeader, []byte("name,account_id\nA,"+goodAccount+"\nB,"+missingAccount+"\nC,"+goodAccount+"\n"), 0644))
	noHeader := filepath.Join(dir, "plain.csv")
	require.NoError(t, os.WriteFile(noHeader, []byte(goodAccount+"\n"+missingAccount+"\n"), 0644))

	testCases := []struct {
		name     string
		source   string
		expected []string
		fails    bool
	}{
		{"header", withHeader, []string{goodAccount, missingAccount}, false},
		{"first column", noHeader, []string{goodAccount, missingAccount}, false},
		{"list", " 00000776533000000 ,26272500060150000,,", []string{goodAccount, missingAccount}, false},
		{"lowercase", "0000077653300000a", []string{"0000077653300000A"}, false},
		{"invalid", goodAccount + ",short", []string{goodAccount}, true},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			ids, err := ReadAccounts(test.source)
			if test.fails {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, test.expected, ids)
		})
	}
}
