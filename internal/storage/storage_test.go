package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/storage"
)

const testFile = "2026_02.csv"

func newStore(t *testing.T, opts ...storage.Option) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func visitor(n int) model.NewEntry {
	return model.NewEntry{
		Name:         "Visitor " + strconv.Itoa(n),
		IDNumber:     "1234567890" + strconv.Itoa(n%10),
		ServiceType:  "Registration",
		Neighborhood: "Centro",
	}
}

func writeFile(t *testing.T, s *storage.Store, name, content string) {
	t.Helper()
	if err := os.WriteFile(s.Path(name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCurrentFileName(t *testing.T) {
	s := newStore(t, storage.WithLocation(time.UTC))
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), "2025_09.csv"},
		{time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), "2026_12.csv"},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026_01.csv"},
	}
	for _, tt := range tests {
		if got := s.CurrentFileName(tt.now); got != tt.want {
			t.Errorf("CurrentFileName(%v) = %q, want %q", tt.now, got, tt.want)
		}
	}
	if _, err := os.Stat(s.Path("2025_09.csv")); !os.IsNotExist(err) {
		t.Error("CurrentFileName must not create the file")
	}
}

func TestListFiles(t *testing.T) {
	s := newStore(t)

	files, err := s.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles on empty dir: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("ListFiles = %v, want empty", files)
	}

	for _, name := range []string{"2025_11.csv", "2026_01.csv", "2025_12.csv", "notes.txt"} {
		writeFile(t, s, name, "")
	}
	if err := os.Mkdir(filepath.Join(s.Dir(), "old.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err = s.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []string{"2026_01.csv", "2025_12.csv", "2025_11.csv"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("ListFiles = %v, want %v", files, want)
	}
}

func TestLoadNotExist(t *testing.T) {
	s := newStore(t)
	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Load = %v, want empty non-nil slice", entries)
	}
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	s := newStore(t)
	const n = 5
	for i := 1; i <= n; i++ {
		e, err := s.Append(testFile, visitor(i))
		if err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
		if e.ID != strconv.Itoa(i) {
			t.Errorf("Append #%d ID = %q, want %q", i, e.ID, strconv.Itoa(i))
		}
	}

	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("Load entries = %d, want %d", len(entries), n)
	}
	for i, e := range entries {
		if e.ID != strconv.Itoa(i+1) {
			t.Errorf("entry %d ID = %q, want %q", i, e.ID, strconv.Itoa(i+1))
		}
	}
}

func TestAppendThenLoad(t *testing.T) {
	s := newStore(t)
	start := time.Now().Truncate(time.Second)

	ne := model.NewEntry{
		Name:         "Maria, da Silva",
		IDNumber:     "123.456.789-01",
		ServiceType:  `Benefit "renewal"`,
		Neighborhood: "Jardim América",
	}
	created, err := s.Append(testFile, ne)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	end := time.Now()

	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Name != ne.Name || last.IDNumber != ne.IDNumber ||
		last.ServiceType != ne.ServiceType || last.Neighborhood != ne.Neighborhood {
		t.Errorf("loaded entry = %+v, want fields of %+v", last, ne)
	}
	if last.Called {
		t.Error("new entry Called = true, want false")
	}
	if last.Status != model.StatusPending {
		t.Errorf("new entry Status = %v, want Pending", last.Status)
	}
	if last.Date.Before(start) || last.Date.After(end) {
		t.Errorf("new entry Date = %v, want within [%v, %v]", last.Date, start, end)
	}
	if !last.Date.Equal(created.Date) {
		t.Errorf("loaded Date = %v, returned Date = %v", last.Date, created.Date)
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	s := newStore(t)
	for i := 1; i <= 3; i++ {
		if _, err := s.Append(testFile, visitor(i)); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(s.Path(testFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("file has %d lines, want 4:\n%s", len(lines), data)
	}
	if lines[0] != "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status" {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Count(string(data), "ID,Date") != 1 {
		t.Error("header written more than once")
	}
}

func TestAppendDoesNotRewritePriorRows(t *testing.T) {
	s := newStore(t)
	// Unusual but valid formatting that a rewrite would normalize.
	existing := "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status\n" +
		"7,2026-02-01 09:00:00,\"Ana\",111,Docs,Centro,yes,Pending\n"
	writeFile(t, s, testFile, existing)

	e, err := s.Append(testFile, visitor(1))
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "8" {
		t.Errorf("ID = %q, want 8", e.ID)
	}
	data, err := os.ReadFile(s.Path(testFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), existing) {
		t.Errorf("prior rows changed:\n%s", data)
	}
}

func TestAppendAfterMissingFinalNewline(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, testFile, "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status\n"+
		"1,2026-02-01 09:00:00,A,1,S,N,no,Pending")

	e, err := s.Append(testFile, visitor(2))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Status != model.StatusPending || entries[0].Name != "A" {
		t.Errorf("previous row changed: %+v", entries[0])
	}
	if entries[1].ID != e.ID || entries[1].Name != "Visitor 2" {
		t.Errorf("appended row = %+v, want ID %s Visitor 2", entries[1], e.ID)
	}
}

func TestAppendFollowsFileHeaderOrder(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		check    func(t *testing.T, got model.Entry)
	}{
		{
			name: "reordered",
			existing: "Name,ID,Date,Status,Called,IDNumber,ServiceType,Neighborhood\n" +
				"A,1,2026-02-01 09:00:00,Pending,no,1,S,N\n",
			check: func(t *testing.T, got model.Entry) {
				if got.IDNumber != "12345678902" || got.ServiceType != "Registration" || got.Neighborhood != "Centro" {
					t.Errorf("fields misplaced: %+v", got)
				}
			},
		},
		{
			name: "legacy names",
			existing: "ID,Data,Nome,CPF,Atendimento,Bairro,Chamado,Status\n" +
				"1,2025-09-03 10:15:00,João,12345678901,Cadastro,Centro,Sim,OK\n",
			check: func(t *testing.T, got model.Entry) {
				if got.Called || got.Status != model.StatusPending {
					t.Errorf("called/status = %v/%v, want no/Pending", got.Called, got.Status)
				}
			},
		},
		{
			name:     "partial",
			existing: "ID,Name,Date\n1,A,2026-02-01 09:00:00\n",
			check:    func(t *testing.T, got model.Entry) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 2, 3, 11, 0, 0, 0, time.UTC)
			s := newStore(t, storage.WithClock(func() time.Time { return now }), storage.WithLocation(time.UTC))
			writeFile(t, s, testFile, tt.existing)

			e, err := s.Append(testFile, visitor(2))
			if err != nil {
				t.Fatal(err)
			}
			if e.ID != "2" {
				t.Errorf("ID = %q, want 2", e.ID)
			}
			entries, err := s.Load(testFile)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 2 {
				t.Fatalf("got %d entries, want 2", len(entries))
			}
			got := entries[1]
			if got.ID != "2" || got.Name != "Visitor 2" || !got.Date.Equal(now) {
				t.Errorf("reloaded entry = %+v", got)
			}
			tt.check(t, got)

			next, err := s.Append(testFile, visitor(3))
			if err != nil {
				t.Fatal(err)
			}
			if next.ID != "3" {
				t.Errorf("next ID = %q, want 3", next.ID)
			}
		})
	}
}

func TestAppendUnknownHeader(t *testing.T) {
	s := newStore(t)
	existing := "foo,bar\n1,2\n"
	writeFile(t, s, testFile, existing)

	_, err := s.Append(testFile, visitor(1))
	if !errors.Is(err, storage.ErrUnknownHeader) {
		t.Fatalf("err = %v, want ErrUnknownHeader", err)
	}
	data, err := os.ReadFile(s.Path(testFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != existing {
		t.Errorf("file changed:\n%s", data)
	}
}

func TestAppendSkipsNonNumericIDs(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, testFile, "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status\n"+
		"abc,2026-02-01 09:00:00,A,1,S,N,no,Pending\n"+
		"3,2026-02-01 09:00:00,B,2,S,N,no,Pending\n"+
		"-9,2026-02-01 09:00:00,C,3,S,N,no,Pending\n")
	e, err := s.Append(testFile, visitor(1))
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "4" {
		t.Errorf("ID = %q, want 4", e.ID)
	}
}

func TestMarkDone(t *testing.T) {
	s := newStore(t)
	for i := 1; i <= 3; i++ {
		if _, err := s.Append(testFile, visitor(i)); err != nil {
			t.Fatal(err)
		}
	}
	before, err := s.Load(testFile)
	if err != nil {
		t.Fatal(err)
	}

	found, err := s.MarkDone("2", testFile)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if !found {
		t.Fatal("MarkDone found = false, want true")
	}

	after, err := s.Load(testFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("entries = %d, want %d", len(after), len(before))
	}
	for i := range after {
		want := before[i]
		if want.ID == "2" {
			want.Status = model.StatusDone
		}
		if after[i] != want {
			t.Errorf("entry %d = %+v, want %+v", i, after[i], want)
		}
	}
}

func TestMarkDoneNotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.Append(testFile, visitor(1)); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(s.Path(testFile))

	found, err := s.MarkDone("42", testFile)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if found {
		t.Error("MarkDone found = true for unknown id")
	}
	after, _ := os.ReadFile(s.Path(testFile))
	if string(before) != string(after) {
		t.Error("file changed on not-found MarkDone")
	}

	found, err = s.MarkDone("1", "1999_01.csv")
	if err != nil || found {
		t.Errorf("MarkDone on missing file = (%v, %v), want (false, nil)", found, err)
	}
}

func TestToggleCalled(t *testing.T) {
	s := newStore(t)
	if _, err := s.Append(testFile, visitor(1)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		current string
		want    bool
	}{
		{"no", true},
		{"yes", false},
		{"Não", true},
		{"Nao", true},
		{"YES", false},
		{"Sim", false},
	}
	for _, tt := range tests {
		found, err := s.ToggleCalled("1", tt.current, testFile)
		if err != nil {
			t.Fatalf("ToggleCalled(%q): %v", tt.current, err)
		}
		if !found {
			t.Fatalf("ToggleCalled(%q) found = false", tt.current)
		}
		entries, err := s.Load(testFile)
		if err != nil {
			t.Fatal(err)
		}
		if entries[0].Called != tt.want {
			t.Errorf("after ToggleCalled(%q) Called = %v, want %v", tt.current, entries[0].Called, tt.want)
		}
	}
}

func TestToggleCalledUsesAssertedState(t *testing.T) {
	s := newStore(t)
	if _, err := s.Append(testFile, visitor(1)); err != nil {
		t.Fatal(err)
	}
	// Stored value is "no"; a caller still displaying "no" flips it to yes
	// twice in a row rather than toggling back.
	for i := 0; i < 2; i++ {
		if _, err := s.ToggleCalled("1", "no", testFile); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatal(err)
	}
	if !entries[0].Called {
		t.Error("Called = false, want true")
	}
}

func TestToggleCalledNotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.Append(testFile, visitor(1)); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(s.Path(testFile))
	for _, state := range []string{"yes", "no"} {
		found, err := s.ToggleCalled("99", state, testFile)
		if err != nil {
			t.Fatalf("ToggleCalled: %v", err)
		}
		if found {
			t.Errorf("ToggleCalled(99, %q) found = true", state)
		}
	}
	after, _ := os.ReadFile(s.Path(testFile))
	if string(before) != string(after) {
		t.Error("file changed on not-found ToggleCalled")
	}
}

func TestSummarize(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, testFile, "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status\n"+
		"1,2026-02-01 09:00:00,A,1,S,N,Sim,Pending\n"+
		"2,2026-02-01 09:05:00,B,2,S,N,no,Pending\n"+
		"3,2026-02-01 09:10:00,C,3,S,N,yes,Done\n"+
		"4,2026-02-01 09:15:00,D,4,S,N,Não,Pending\n"+
		"5,2026-02-01 09:20:00,E,5,S,N,,Pending\n")

	sum, err := s.Summarize(testFile)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := model.Summary{Total: 5, Called: 2, NotCalled: 3}
	if sum != want {
		t.Errorf("Summarize = %+v, want %+v", sum, want)
	}

	empty, err := s.Summarize("1999_01.csv")
	if err != nil {
		t.Fatalf("Summarize missing file: %v", err)
	}
	if empty != (model.Summary{}) {
		t.Errorf("Summarize missing file = %+v, want zero", empty)
	}
}

func TestLoadBadDateKeepsRow(t *testing.T) {
	start := time.Now()
	s := newStore(t)
	writeFile(t, s, testFile, "ID,Date,Name,IDNumber,ServiceType,Neighborhood,Called,Status\n"+
		"1,not a date,A,1,S,N,no,Pending\n"+
		"2,2026-02-01 09:05:00,B,2,S,N,no,Pending\n")

	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Date.Before(start) {
		t.Errorf("bad date row Date = %v, want >= %v", entries[0].Date, start)
	}
	if entries[0].Name != "A" {
		t.Errorf("bad date row Name = %q, want A", entries[0].Name)
	}
}

func TestLoadDefaultsMissingColumns(t *testing.T) {
	start := time.Now()
	s := newStore(t)
	writeFile(t, s, testFile, "ID,Name,IDNumber,ServiceType,Neighborhood\n"+
		"1,A,1,S,N\n"+
		"2,B\n")

	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Called {
			t.Errorf("entry %s Called = true, want default false", e.ID)
		}
		if e.Status != model.StatusPending {
			t.Errorf("entry %s Status = %v, want Pending", e.ID, e.Status)
		}
		if e.Date.Before(start) {
			t.Errorf("entry %s Date = %v, want >= %v", e.ID, e.Date, start)
		}
	}
	if entries[1].IDNumber != "" {
		t.Errorf("short row IDNumber = %q, want empty", entries[1].IDNumber)
	}
}

func TestLoadLegacyHeader(t *testing.T) {
	s := newStore(t, storage.WithLocation(time.UTC))
	writeFile(t, s, testFile, "ID,Data,Nome,CPF,Atendimento,Bairro,Chamado,Status\n"+
		"1,2025-09-03 10:15:00,João,12345678901,Cadastro,Centro,Sim,OK\n"+
		"2,2025-09-03 10:20:00,Ana,10987654321,Benefício,Vila Nova,Não,Pendente\n")

	entries, err := s.Load(testFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []model.Entry{
		{
			ID: "1", Date: time.Date(2025, 9, 3, 10, 15, 0, 0, time.UTC),
			Name: "João", IDNumber: "12345678901", ServiceType: "Cadastro", Neighborhood: "Centro",
			Called: true, Status: model.StatusDone,
		},
		{
			ID: "2", Date: time.Date(2025, 9, 3, 10, 20, 0, 0, time.UTC),
			Name: "Ana", IDNumber: "10987654321", ServiceType: "Benefício", Neighborhood: "Vila Nova",
			Called: false, Status: model.StatusPending,
		},
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		s := newStore(t, storage.WithAtomicWrites(atomic))
		for i := 1; i <= 4; i++ {
			if _, err := s.Append(testFile, visitor(i)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := s.ToggleCalled("3", "no", testFile); err != nil {
			t.Fatal(err)
		}

		first, err := s.Load(testFile)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SaveAll(testFile, first); err != nil {
			t.Fatalf("SaveAll(atomic=%v): %v", atomic, err)
		}
		second, err := s.Load(testFile)
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != len(second) {
			t.Fatalf("round trip entries = %d, want %d", len(second), len(first))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("atomic=%v entry %d = %+v, want %+v", atomic, i, second[i], first[i])
			}
		}

		files, err := s.ListFiles()
		if err != nil {
			t.Fatal(err)
		}
		if len(files) != 1 {
			t.Errorf("atomic=%v left extra files: %v", atomic, files)
		}
	}
}

func TestLoadIOError(t *testing.T) {
	s := newStore(t)
	// A directory where the file should be makes the read fail.
	if err := os.Mkdir(s.Path(testFile), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := s.Load(testFile)
	var ioErr *storage.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Load error = %v, want *storage.IOError", err)
	}
	if ioErr.Path != s.Path(testFile) {
		t.Errorf("IOError.Path = %q, want %q", ioErr.Path, s.Path(testFile))
	}

	if _, err := s.Append(testFile, visitor(1)); !errors.As(err, &ioErr) {
		t.Errorf("Append error = %v, want *storage.IOError", err)
	}
}

func TestPathStaysInDataDir(t *testing.T) {
	s := newStore(t)
	got := s.Path("../../etc/passwd")
	if filepath.Dir(got) != s.Dir() {
		t.Errorf("Path escaped data dir: %q", got)
	}
}
