package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dcad-backend/internal/scrapers/dcad"
)

// ReadAccounts resolves a list of account ids from either a csv file or a
// comma separated list. In a csv the "account_id" column is used when the
// header has one, the first column otherwise.
func ReadAccounts(source string) ([]string, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readCSV(f)
	}
	return dedupe(strings.Split(source, ","))
}

func readCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ids []string
	column := 0
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read accounts csv: %w", err)
		}
		if first {
			first = false
			found := false
			for i, name := range row {
				if strings.EqualFold(strings.TrimSpace(name), "account_id") {
					column = i
					found = true
				}
			}
			if found {
				continue
			}
		}
		if column < len(row) {
			ids = append(ids, row[column])
		}
	}
	return dedupe(ids)
}

// dedupe normalizes ids and drops blanks and repeats, keeping order.
func dedupe(raw []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	var errs []error
	for _, id := range raw {
		if strings.TrimSpace(id) == "" {
			continue
		}
		normalized, err := dcad.NormalizeAccountID(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", id, err))
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out, errors.Join(errs...)
}
