package assembler

import (
	"context"
	"encoding/json"
	"testing"

	"dcad-backend/internal/telemetry"
)

func FuzzExtract(f *testing.F) {
	f.Add(accountPage, historyPage)
	f.Add("<table><tr><th>Taxing Jurisdiction</th></tr></table>", "<table><tr><td>2024</td></tr></table>")
	f.Add("<div id=\"lblOwner\"><td>", "")
	f.Add("<html>", "<tr><td></td><td>$</td></tr>")

	engine := NewEngine(&telemetry.Recorder{})
	f.Fuzz(func(t *testing.T, account, history string) {
		docs := Documents{Account: account, History: history}
		first, err := engine.Extract(context.Background(), docs)
		if err != nil {
			return
		}
		second, err := engine.Extract(context.Background(), docs)
		if err != nil {
			t.Fatalf("second extraction failed: %v", err)
		}

		a, err := json.Marshal(first)
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(second)
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Fatalf("extraction is not deterministic:\n%s\n%s", a, b)
		}
	})
}
