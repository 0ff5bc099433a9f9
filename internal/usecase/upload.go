package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	xutil "PairLab/pkg/util"
)

// maxUploadLine bounds a single NDJSON line.
const maxUploadLine = 1 << 20

// LineError reports the 1-based line of an upload that could not be parsed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// UploadResult summarizes a stored upload.
type UploadResult struct {
	Message string   `json:"message"`
	Count   int      `json:"count"`
	Symbols []string `json:"symbols"`
}

type uploadLine struct {
	Symbol string      `json:"symbol"`
	Ts     interface{} `json:"ts"`
	Price  *float64    `json:"price"`
	Size   *float64    `json:"size"`
	Qty    *float64    `json:"qty"`
}

// TickUploader stores NDJSON tick files directly, bypassing the buffer.
type TickUploader struct {
	store   domrepo.TickStore
	metrics domrepo.Metrics
}

func NewTickUploader(store domrepo.TickStore, metrics domrepo.Metrics) *TickUploader {
	return &TickUploader{store: store, metrics: metrics}
}

// ParseNDJSON reads one tick per non-blank line.
func ParseNDJSON(r io.Reader) ([]*models.Tick, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxUploadLine)

	var ticks []*models.Tick
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		t, err := parseUploadLine([]byte(raw))
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		ticks = append(ticks, t)
	}
	if err := sc.Err(); err != nil {
		return nil, &LineError{Line: line + 1, Err: err}
	}
	return ticks, nil
}

func parseUploadLine(b []byte) (*models.Tick, error) {
	var in uploadLine
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	if in.Price == nil {
		return nil, errors.New("missing price")
	}
	var (
		ts time.Time
		ok bool
	)
	switch v := in.Ts.(type) {
	case string:
		ts, ok = xutil.ParseTime(v)
	case float64:
		ts, ok = xutil.FromEpoch(v)
	}
	if !ok {
		return nil, fmt.Errorf("invalid ts %v", in.Ts)
	}
	t := &models.Tick{Symbol: in.Symbol, Time: ts, Price: *in.Price}
	switch {
	case in.Size != nil:
		t.Size = *in.Size
	case in.Qty != nil:
		t.Size = *in.Qty
	}
	if err := NormalizeTick(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Upload parses r and stores every tick in one batch.
func (u *TickUploader) Upload(ctx context.Context, r io.Reader) (*UploadResult, error) {
	ticks, err := ParseNDJSON(r)
	if err != nil {
		u.metrics.RecordError("upload_parse")
		return nil, err
	}
	if len(ticks) > 0 {
		start := time.Now()
		if err := u.store.StoreBatch(ctx, ticks); err != nil {
			u.metrics.RecordError("upload_store")
			return nil, fmt.Errorf("store upload: %w", err)
		}
		u.metrics.RecordLatency("upload_store", time.Since(start).Seconds())
	}

	seen := make(map[string]int)
	for _, t := range ticks {
		seen[t.Symbol]++
	}
	symbols := make([]string, 0, len(seen))
	for s, n := range seen {
		symbols = append(symbols, s)
		u.metrics.RecordTicksStored("upload", s, n)
	}
	sort.Strings(symbols)

	return &UploadResult{
		Message: "File uploaded successfully",
		Count:   len(ticks),
		Symbols: symbols,
	}, nil
}

// Stats returns per-symbol tick counts.
func (u *TickUploader) Stats(ctx context.Context) ([]models.SymbolStats, error) {
	return u.store.Stats(ctx)
}
