package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const utf8BOM = "\ufeff"

// Stats reports cache activity of a Loader.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type entry struct {
	table   *Table
	modTime time.Time
	size    int64
}

// Loader reads tables from disk and caches them by path. A cached table is
// returned as long as the file's size and modification time are unchanged.
type Loader struct {
	// Delimiter separates fields in delimited text sources.
	Delimiter rune

	log *zap.Logger

	mu    sync.Mutex
	cache map[string]entry

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLoader returns a Loader for sources delimited by delim. A zero delim
// means comma. A nil logger disables logging.
func NewLoader(delim rune, log *zap.Logger) *Loader {
	if delim == 0 {
		delim = ','
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		Delimiter: delim,
		log:       log,
		cache:     make(map[string]entry),
	}
}

// Load returns the table stored at path, reading it only when it is not
// cached or has changed on disk. Failures are returned as *LoadError.
func (l *Loader) Load(path string) (*Table, error) {
	key := cacheKey(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	l.mu.Lock()
	e, ok := l.cache[key]
	l.mu.Unlock()
	if ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		l.hits.Add(1)
		return e.table, nil
	}

	l.misses.Add(1)
	t, err := l.read(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	l.log.Debug("loaded table",
		zap.String("path", path),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Header()))

	l.mu.Lock()
	l.cache[key] = entry{table: t, modTime: info.ModTime(), size: info.Size()}
	l.mu.Unlock()
	return t, nil
}

// Invalidate drops the cached table for path, if any.
func (l *Loader) Invalidate(path string) {
	key := cacheKey(path)
	l.mu.Lock()
	_, ok := l.cache[key]
	delete(l.cache, key)
	l.mu.Unlock()
	if ok {
		l.log.Debug("invalidated cached table", zap.String("path", path))
	}
}

// Stats returns a snapshot of the cache counters.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	n := len(l.cache)
	l.mu.Unlock()
	return Stats{Hits: l.hits.Load(), Misses: l.misses.Load(), Entries: n}
}

func (l *Loader) read(path string) (*Table, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDelimited(f, name, l.Delimiter)
}

// ReadDelimited parses delimited text with a header row. Every row must have
// as many fields as the header.
func ReadDelimited(r io.Reader, name string, delim rune) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = 0

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	return fromRecords(name, records)
}

func fromRecords(name string, records [][]string) (*Table, error) {
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	t, err := New(name, header...)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, rec := range records[1:] {
		if err := t.Append(rec...); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
	}
	return t, nil
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
