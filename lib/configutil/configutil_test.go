package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Workers int    `json:"workers"`
	Nested  struct {
		Url string `json:"url"`
	} `json:"nested"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dcad.json5")

	_, err := ReadConfig[testConfig](path)
	require.True(t, os.IsNotExist(err))

	writeFile(t, path, `{
		// comments are allowed
		name: "dcad",
		workers: 2,
		nested: { url: "https://www.dallascad.org" },
	}`)
	config, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "dcad", config.Name)
	require.Equal(t, 2, config.Workers)

	writeFile(t, filepath.Join(dir, "dcad.local.json5"), `{ workers: 8 }`)
	config, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "dcad", config.Name)
	require.Equal(t, 8, config.Workers)
	require.Equal(t, "https://www.dallascad.org", config.Nested.Url)
}

func TestSplitExt(t *testing.T) {
	testCases := []struct {
		in, prefix, ext string
	}{
		{in: "telemetry.json5", prefix: "telemetry", ext: "json5"},
		{in: "a.b.json", prefix: "a.b", ext: "json"},
		{in: "noext", prefix: "noext", ext: ""},
	}
	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			prefix, ext := splitExt(test.in)
			require.Equal(t, test.prefix, prefix)
			require.Equal(t, test.ext, ext)
		})
	}
}

func TestDatabaseDialect(t *testing.T) {
	require.Equal(t, "sqlite", Database{}.Dialect())
	require.Equal(t, "sqlite", Database{Driver: DriverLibsql}.Dialect())
	require.Equal(t, "postgres", Database{Driver: DriverPostgres}.Dialect())

	_, err := Database{Driver: "oracle"}.OpenDB()
	require.Error(t, err)
	_, err = Database{Driver: DriverPostgres}.OpenDB()
	require.Error(t, err)
}

func TestOpenSqliteMemory(t *testing.T) {
	db, err := Database{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
}
