// Package archive keeps the raw pages an extraction was made from so that
// records can be re-extracted when the parser changes.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"dcad-backend/internal/assembler"
)

// Archive stores opaque blobs by key.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

var ErrNotFound = errors.New("archive: key not found")

type Type string

const (
	TypeNone  Type = ""
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

type Config struct {
	Type      Type   `json:"type"`
	LocalPath string `json:"local_path"`

	S3Bucket string `json:"s3_bucket"`
	S3Region string `json:"s3_region"`
	// S3Endpoint points the client at an s3 compatible service, path style
	// addressing is used when it is set.
	S3Endpoint   string `json:"s3_endpoint"`
	AWSAccessKey string `json:"aws_access_key"`
	AWSSecretKey string `json:"aws_secret_key"`
}

// New creates the archive named by the config, a config without a type
// yields a nil archive.
func New(ctx context.Context, cfg Config) (Archive, error) {
	switch cfg.Type {
	case TypeNone:
		return nil, nil
	case TypeLocal:
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./archive"
		}
		return NewLocal(cfg.LocalPath)
	case TypeS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

func sanitize(part string) string {
	part = strings.TrimSpace(part)
	part = strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_").Replace(part)
	if part == "" {
		return "_"
	}
	return part
}

// Key is the archive key of one page of an account fetched during a run.
func Key(runID, accountID, name string) string {
	return path.Join("runs", sanitize(runID), sanitize(accountID), sanitize(name))
}

// PutDocuments archives every non-empty page of docs and the extracted record
// under the run and account.
func PutDocuments(ctx context.Context, a Archive, runID, accountID string, docs assembler.Documents, recordJSON []byte) error {
	pages := []struct {
		name string
		body string
	}{
		{"account.html", docs.Account},
		{"history.html", docs.History},
		{"exemption_details.html", docs.ExemptionDetails},
		{"exemption_details_history.html", docs.ExemptionDetailsHistory},
	}
	var errs []error
	for _, p := range pages {
		if p.body == "" {
			continue
		}
		err := a.Put(ctx, Key(runID, accountID, p.name), []byte(p.body), "text/html; charset=utf-8")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	if len(recordJSON) > 0 {
		err := a.Put(ctx, Key(runID, accountID, "record.json"), recordJSON, "application/json")
		if err != nil {
			errs = append(errs, fmt.Errorf("record.json: %w", err))
		}
	}
	return errors.Join(errs...)
}
