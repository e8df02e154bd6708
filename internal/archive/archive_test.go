package archive

import (
	"context"
	"errors"
	"testing"

	"dcad-backend/internal/assembler"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	testCases := []struct {
		run, account, name string
		expected           string
	}{
		{"run-1", "26272500060150000", "account.html", "runs/run-1/26272500060150000/account.html"},
		{"../etc", "a/b", "x y", "runs/_etc/a_b/x_y"},
		{"", " ", "record.json", "runs/_/_/record.json"},
	}
	for _, test := range testCases {
		t.Run(test.expected, func(t *testing.T) {
			require.Equal(t, test.expected, Key(test.run, test.account, test.name))
		})
	}
}

func TestLocalPutDocuments(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Config{Type: TypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)

	docs := assembler.Documents{
		Account: "<html>account</html>",
		History: "<html>history</html>",
	}
	err = PutDocuments(ctx, a, "run-1", "00000776533000000", docs, []byte(`{"account_id":"00000776533000000"}`))
	require.NoError(t, err)

	body, err := a.Get(ctx, Key("run-1", "00000776533000000", "account.html"))
	require.NoError(t, err)
	require.Equal(t, docs.Account, string(body))

	body, err = a.Get(ctx, Key("run-1", "00000776533000000", "record.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"account_id":"00000776533000000"}`, string(body))

	_, err = a.Get(ctx, Key("run-1", "00000776533000000", "exemption_details.html"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNewArchive(t *testing.T) {
	a, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.Nil(t, a)

	_, err = New(context.Background(), Config{Type: "ftp"})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Type: TypeS3})
	require.Error(t, err)
}
