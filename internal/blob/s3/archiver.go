package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// TradeArchiveStore is the narrow store surface the archiver needs: a
// time-ranged read plus the matching delete.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// multipartThreshold switches uploads to the multipart manager. Archives
// rarely grow this large but a long-running bot can get there.
const multipartThreshold = 8 * 1024 * 1024

// Archiver implements domain.Archiver. It moves aged trade rows out of the
// primary store: query, serialize to gzip JSONL, upload, then delete. The
// delete only runs after the upload succeeds, so a failed cycle leaves the
// rows in place to be retried.
type Archiver struct {
	writer *Writer
	trades TradeArchiveStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer *Writer, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

var _ domain.Archiver = (*Archiver)(nil)

// ArchiveTrades queries all trades before the cutoff, uploads them to
// archive/trades/YYYY-MM-DD.jsonl.gz, and deletes the archived rows. It
// returns the number of trades archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := gzipJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath(before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/gzip")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(trades)), fmt.Errorf("s3blob: archive trades delete: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("archived", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(trades)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date.
//
//	archive/trades/2026-08-31.jsonl.gz
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl.gz", before.UTC().Format("2006-01-02"))
}

// gzipJSONL serialises records as newline-delimited JSON and compresses the
// result with gzip.
func gzipJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	enc := json.NewEncoder(gz)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
