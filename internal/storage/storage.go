// Package storage is the record store: one CSV file per calendar month,
// read and rewritten whole on every update.
//
// The store assumes a single caller at a time. There is no locking, and a
// crash or overlapping request during a rewrite can truncate the file.
// WithAtomicWrites switches rewrites to write-temp-then-rename.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kjk/common/atomicfile"
	"go.uber.org/zap"

	"github.com/Tiliavir/reception/internal/metrics"
	"github.com/Tiliavir/reception/internal/model"
)

// FileExt is the extension of every monthly file.
const FileExt = ".csv"

// IOError is a read or write failure on a monthly file. It is the only
// store error a caller needs to handle; not-found is a plain bool.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage error %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrUnknownHeader is returned by Append when the file's header names none of
// the known columns.
var ErrUnknownHeader = errors.New("header has no known column")

// Store reads and writes monthly files below a data directory.
type Store struct {
	dir    string
	now    func() time.Time
	loc    *time.Location
	atomic bool
	log    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used for file names and for parsing dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAtomicWrites makes full rewrites go through a temp file and rename.
func WithAtomicWrites(on bool) Option {
	return func(s *Store) { s.atomic = on }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir: dir,
		now: time.Now,
		loc: time.Local,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "creating", Path: dir, Err: err}
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Now returns the store's current time in its location.
func (s *Store) Now() time.Time { return s.now().In(s.loc) }

// CurrentFileName returns the monthly file name for now, e.g. "2025_09.csv".
// The file may not exist yet.
func (s *Store) CurrentFileName(now time.Time) string {
	now = now.In(s.loc)
	return fmt.Sprintf("%d_%02d%s", now.Year(), int(now.Month()), FileExt)
}

// Path resolves a file name below the data directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// ListFiles returns the monthly file names in the data directory, most
// recent first.
func (s *Store) ListFiles() ([]string, error) {
	des, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &IOError{Op: "listing", Path: s.dir, Err: err}
	}
	names := []string{}
	for _, de := range des {
		if de.IsDir() || !strings.HasSuffix(de.Name(), FileExt) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Load returns every entry of the named file in row order. A missing file
// yields an empty slice.
func (s *Store) Load(name string) ([]model.Entry, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []model.Entry{}, nil
	}
	if err != nil {
		return nil, &IOError{Op: "reading", Path: path, Err: err}
	}
	entries, _, err := decodeEntries(bytes.NewReader(data), s.Now(), s.loc)
	if err != nil {
		return nil, &IOError{Op: "parsing", Path: path, Err: err}
	}
	return entries, nil
}

// Append adds a check-in to the named file and returns it. The new ID is one
// more than the highest numeric ID already in the file. Existing rows are
// never rewritten; a header is written first when the file is new or empty,
// and otherwise the row's fields follow the existing header's column order.
func (s *Store) Append(name string, ne model.NewEntry) (model.Entry, error) {
	entry, err := s.append(name, ne)
	metrics.ObserveStore("append", true, err)
	if err == nil {
		metrics.CheckIns.Inc()
	}
	return entry, err
}

func (s *Store) append(name string, ne model.NewEntry) (model.Entry, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return model.Entry{}, &IOError{Op: "reading", Path: path, Err: err}
	}
	existing, header, err := decodeEntries(bytes.NewReader(data), s.Now(), s.loc)
	if err != nil {
		return model.Entry{}, &IOError{Op: "parsing", Path: path, Err: err}
	}

	entry := model.Entry{
		ID:           nextID(existing),
		Date:         s.Now().Truncate(time.Second),
		Name:         ne.Name,
		IDNumber:     ne.IDNumber,
		ServiceType:  ne.ServiceType,
		Neighborhood: ne.Neighborhood,
		Called:       false,
		Status:       model.StatusPending,
	}

	// New rows follow the file's own header order. A missing final newline
	// is restored first so the row does not run into the previous one.
	var buf bytes.Buffer
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
	if len(header) == 0 {
		err = encodeEntries(&buf, []model.Entry{entry})
	} else {
		layout := rowLayout(header)
		if !slices.ContainsFunc(layout, func(col int) bool { return col >= 0 }) {
			return model.Entry{}, &IOError{Op: "appending", Path: path, Err: ErrUnknownHeader}
		}
		err = encodeRowsAs(&buf, layout, []model.Entry{entry})
	}
	if err != nil {
		return model.Entry{}, &IOError{Op: "encoding", Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return model.Entry{}, &IOError{Op: "opening", Path: path, Err: err}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return model.Entry{}, &IOError{Op: "writing", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return model.Entry{}, &IOError{Op: "closing", Path: path, Err: err}
	}

	s.log.Debug("appended entry", zap.String("file", name), zap.String("id", entry.ID))
	return entry, nil
}

// MarkDone sets Status=Done on the first entry with the given ID and rewrites
// the file. It reports whether the ID was found; the file is left untouched
// when it was not.
func (s *Store) MarkDone(id, name string) (bool, error) {
	found, err := s.update(id, name, func(e *model.Entry) {
		e.Status = model.StatusDone
	})
	metrics.ObserveStore("mark_done", found, err)
	return found, err
}

// ToggleCalled sets the called flag of the first entry with the given ID to
// the opposite of currentState, the state the caller is displaying. The
// stored value is not consulted, so a stale caller can flip it the "wrong"
// way; callers rely on this.
func (s *Store) ToggleCalled(id, currentState, name string) (bool, error) {
	called := !model.IsAffirmative(currentState)
	found, err := s.update(id, name, func(e *model.Entry) {
		e.Called = called
	})
	metrics.ObserveStore("toggle_called", found, err)
	return found, err
}

func (s *Store) update(id, name string, fn func(*model.Entry)) (bool, error) {
	entries, err := s.Load(name)
	if err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].ID == id {
			fn(&entries[i])
			return true, s.SaveAll(name, entries)
		}
	}
	return false, nil
}

// Summarize counts the entries of the named file by called flag.
func (s *Store) Summarize(name string) (model.Summary, error) {
	entries, err := s.Load(name)
	metrics.ObserveStore("summarize", true, err)
	if err != nil {
		return model.Summary{}, err
	}
	return Summarize(entries), nil
}

// Summarize counts already loaded entries.
func Summarize(entries []model.Entry) model.Summary {
	var sum model.Summary
	sum.Total = len(entries)
	for _, e := range entries {
		if e.Called {
			sum.Called++
		}
	}
	sum.NotCalled = sum.Total - sum.Called
	return sum
}

// SaveAll rewrites the named file with a header and the given entries.
func (s *Store) SaveAll(name string, entries []model.Entry) error {
	path := s.Path(name)

	var buf bytes.Buffer
	if err := encodeEntries(&buf, entries); err != nil {
		return &IOError{Op: "encoding", Path: path, Err: err}
	}

	if s.atomic {
		if err := writeAtomic(path, buf.Bytes()); err != nil {
			return &IOError{Op: "writing", Path: path, Err: err}
		}
	} else if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &IOError{Op: "writing", Path: path, Err: err}
	}

	s.log.Debug("rewrote file",
		zap.String("file", name),
		zap.Int("entries", len(entries)),
		zap.Bool("atomic", s.atomic))
	return nil
}

func writeAtomic(path string, data []byte) error {
	w, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	defer w.RemoveIfNotClosed()
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}
