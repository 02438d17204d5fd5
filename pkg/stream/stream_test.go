package stream

import (
	"bytes"
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// item is a minimal record: a source label, a value and a creation time.
type item struct {
	src     string
	n       int64
	created int64
	note    string
}

func (i item) Columns() []string { return []string{"src", "n", "created", "note"} }

func (i item) Row() []string {
	return []string{i.src, strconv.FormatInt(i.n, 10), strconv.FormatInt(i.created, 10), i.note}
}

func (i item) Attr(name string) (int64, bool) {
	switch name {
	case "n":
		return i.n, true
	case "created_at":
		return i.created, true
	}
	return 0, false
}

func (i item) String() string { return i.src + strconv.FormatInt(i.n, 10) }

// countingSource yields items and records how many were pulled.
type countingSource struct {
	items  []item
	pulled int
	starts int
	failAt int // 1-based index that fails, 0 = never
}

func (c *countingSource) source() Source[item] {
	return func(context.Context) iter.Seq2[item, error] {
		return func(yield func(item, error) bool) {
			c.starts++
			for i, v := range c.items {
				if c.failAt == i+1 {
					yield(item{}, errors.New("fetch failed"))
					return
				}
				c.pulled++
				if !yield(v, nil) {
					return
				}
			}
		}
	}
}

func items(src string, ns ...int64) []item {
	out := make([]item, len(ns))
	for i, n := range ns {
		out[i] = item{src: src, n: n, created: n}
	}
	return out
}

func names(list []item) string {
	s := make([]string, len(list))
	for i, v := range list {
		s[i] = v.String()
	}
	return strings.Join(s, " ")
}

func collect(t *testing.T, s *Stream[item]) []item {
	t.Helper()
	got, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return got
}

func TestMerged_Order(t *testing.T) {
	a := FromSlice(items("a", 1, 2)...)
	b := FromSlice(items("b", 1, 2)...)

	got := collect(t, New(a, b))
	if names(got) != "a1 a2 b1 b2" {
		t.Errorf("merged = %q, want %q", names(got), "a1 a2 b1 b2")
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{"zero", 0, ""},
		{"within first source", 2, "a1 a2"},
		{"across sources", 4, "a1 a2 a3 b1"},
		{"more than available", 10, "a1 a2 a3 b1 b2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &countingSource{items: items("a", 1, 2, 3)}
			b := &countingSource{items: items("b", 1, 2)}
			got := collect(t, New(a.source(), b.source()).Limit(tt.limit))
			if names(got) != tt.want {
				t.Errorf("Limit(%d) = %q, want %q", tt.limit, names(got), tt.want)
			}
		})
	}
}

func TestLimit_NeverReachesLaterSources(t *testing.T) {
	a := &countingSource{items: items("a", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)}
	b := &countingSource{items: items("b", 1, 2)}

	got := collect(t, New(a.source(), b.source()).Limit(5))
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if a.pulled != 5 {
		t.Errorf("pulled from a = %d, want 5", a.pulled)
	}
	if b.starts != 0 {
		t.Errorf("b started %d times, want 0", b.starts)
	}
}

func TestLimit_ZeroFetchesNothing(t *testing.T) {
	a := &countingSource{items: items("a", 1)}

	collect(t, New(a.source()).Limit(0))
	if a.pulled != 0 {
		t.Errorf("pulled = %d, want 0", a.pulled)
	}
}

func TestLimit_Negative(t *testing.T) {
	a := &countingSource{items: items("a", 1)}

	_, err := New(a.source()).Limit(-1).Collect(context.Background())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
	if a.starts != 0 {
		t.Errorf("source started %d times, want 0", a.starts)
	}
}

func TestUnique_FirstOccurrence(t *testing.T) {
	a := FromSlice(item{src: "x", n: 1}, item{src: "x", n: 2}, item{src: "x", n: 1})
	b := FromSlice(item{src: "x", n: 2}, item{src: "x", n: 3})

	got := collect(t, New(a, b).Unique())
	if names(got) != "x1 x2 x3" {
		t.Errorf("Unique() = %q, want %q", names(got), "x1 x2 x3")
	}
}

func TestUnique_StructuralEquality(t *testing.T) {
	// Same n but different note: distinct records.
	src := FromSlice(item{src: "x", n: 1, note: "a"}, item{src: "x", n: 1, note: "b"})

	got := collect(t, New(src).Unique())
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestStream_Immutable(t *testing.T) {
	base := New(FromSlice(items("a", 1, 2, 3)...))
	limited := base.Limit(1)

	if got := collect(t, base); len(got) != 3 {
		t.Errorf("base len = %d, want 3", len(got))
	}
	if got := collect(t, limited); len(got) != 1 {
		t.Errorf("limited len = %d, want 1", len(got))
	}
}

func TestStream_Lazy(t *testing.T) {
	a := &countingSource{items: items("a", 1, 2, 3)}

	s := New(a.source()).Unique().FilterRange("n", Bound(1), nil, 0).Top(2, "n", true)
	_ = s.All(context.Background())
	_ = s.SaveCSV(filepath.Join(t.TempDir(), "never.csv"))
	if a.starts != 0 {
		t.Errorf("source started %d times before consumption, want 0", a.starts)
	}
}

func TestSustained(t *testing.T) {
	even := func(v item) bool { return v.n%2 == 0 }

	tests := []struct {
		name        string
		values      []int64
		maxTailSkip int
		want        string
		wantPulled  int
	}{
		{"leading failures dropped", []int64{1, 3, 5, 2, 4}, 2, "a2 a4", 5},
		{"stops after tail skips", []int64{2, 1, 3, 4}, 2, "a2", 3},
		{"miss counter resets", []int64{2, 1, 4, 3, 6}, 2, "a2 a4 a6", 5},
		{"plain filter", []int64{2, 1, 3, 5, 7, 4}, 0, "a2 a4", 6},
		{"no match ever", []int64{1, 3, 5}, 1, "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{items: items("a", tt.values...)}
			got := collect(t, New(src.source()).Filter(even, tt.maxTailSkip))
			if names(got) != tt.want {
				t.Errorf("Filter() = %q, want %q", names(got), tt.want)
			}
			if src.pulled != tt.wantPulled {
				t.Errorf("pulled = %d, want %d", src.pulled, tt.wantPulled)
			}
		})
	}
}

func TestFilter_PerSubStream(t *testing.T) {
	// a leaves the window early; b must still be fully considered.
	a := &countingSource{items: items("a", 5, 6, 100, 101, 7)}
	b := &countingSource{items: items("b", 1, 5, 6)}

	got := collect(t, New(a.source(), b.source()).FilterRange("n", Bound(5), Bound(10), 2))
	if names(got) != "a5 a6 b5 b6" {
		t.Errorf("FilterRange() = %q, want %q", names(got), "a5 a6 b5 b6")
	}
	if a.pulled != 4 {
		t.Errorf("pulled from a = %d, want 4", a.pulled)
	}
}

func TestFilterRange_UnknownAttribute(t *testing.T) {
	a := &countingSource{items: items("a", 1)}

	s := New(a.source()).FilterRange("nope", nil, nil, 0)
	if !errors.Is(s.Err(), ErrUnknownAttribute) {
		t.Fatalf("Err() = %v, want ErrUnknownAttribute", s.Err())
	}
	_, err := s.Collect(context.Background())
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Collect() error = %v, want ErrUnknownAttribute", err)
	}
	if a.starts != 0 {
		t.Errorf("source started %d times, want 0", a.starts)
	}
}

func TestCreatedRange(t *testing.T) {
	day := func(d int) int64 {
		return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC).UnixNano()
	}
	// Newest first, as feeds are served.
	var list []item
	for _, d := range []int{20, 15, 10, 9, 8, 5, 3} {
		list = append(list, item{src: "d", n: int64(d), created: day(d)})
	}

	got := collect(t, New(FromSlice(list...)).CreatedRange("2024-01-08", "2024-01-15T23:59:59Z"))
	if names(got) != "d15 d10 d9 d8" {
		t.Errorf("CreatedRange() = %q, want %q", names(got), "d15 d10 d9 d8")
	}
}

func TestCreatedRange_InvalidInstant(t *testing.T) {
	s := New(FromSlice(items("a", 1)...)).CreatedRange("yesterday-ish", nil)

	if !errors.Is(s.Err(), ErrInvalidInstant) {
		t.Errorf("Err() = %v, want ErrInvalidInstant", s.Err())
	}
}

func TestTop(t *testing.T) {
	a := FromSlice(items("a", 5, 1, 9, 3)...)
	b := FromSlice(items("b", 7, 2, 8)...)

	tests := []struct {
		num  int
		want string
	}{
		{0, ""},
		{1, "a9"},
		{3, "a9 b8 b7"},
		{10, "a9 b8 b7 a5 a3 b2 a1"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.num), func(t *testing.T) {
			got := collect(t, New(a, b).Top(tt.num, "n", false))
			if names(got) != tt.want {
				t.Errorf("Top(%d) = %q, want %q", tt.num, names(got), tt.want)
			}
		})
	}
}

func TestTop_Unique(t *testing.T) {
	dup := item{src: "a", n: 9}
	src := FromSlice(dup, item{src: "a", n: 1}, dup, item{src: "a", n: 8}, dup)

	got := collect(t, New(src).Top(2, "n", true))
	if names(got) != "a9 a8" {
		t.Errorf("Top(unique) = %q, want %q", names(got), "a9 a8")
	}
}

func TestTopK_MatchesFullSort(t *testing.T) {
	var values []int64
	for i := range 100 {
		values = append(values, int64((i*37)%101))
	}
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b int64) int { return cmp.Compare(b, a) })
	key := func(v item) int64 { return v.n }

	for _, k := range []int{1, 7, 50, 100, 150} {
		seq := FromSlice(items("v", values...)...)(context.Background())
		got, err := TopK(seq, k, key, true, nil)
		if err != nil {
			t.Fatalf("TopK(%d) error = %v", k, err)
		}
		want := sorted[:min(k, len(sorted))]
		if len(got) != len(want) {
			t.Fatalf("TopK(%d) len = %d, want %d", k, len(got), len(want))
		}
		for i := range want {
			if got[i].n != want[i] {
				t.Fatalf("TopK(%d)[%d] = %d, want %d", k, i, got[i].n, want[i])
			}
		}
	}
}

func TestTopK_Ascending(t *testing.T) {
	seq := FromSlice(items("v", 4, 2, 5, 1, 3)...)(context.Background())

	got, err := TopK(seq, 2, func(v item) int64 { return v.n }, false, nil)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if names(got) != "v1 v2" {
		t.Errorf("TopK(asc) = %q, want %q", names(got), "v1 v2")
	}
}

func TestTopK_Error(t *testing.T) {
	src := &countingSource{items: items("v", 1, 2, 3), failAt: 3}

	got, err := TopK(src.source()(context.Background()), 2, func(v item) int64 { return v.n }, true, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Errorf("partial result = %v, want nil", names(got))
	}
}

func TestErrorPropagation(t *testing.T) {
	a := &countingSource{items: items("a", 1, 2, 3), failAt: 3}
	b := &countingSource{items: items("b", 1)}

	got, err := New(a.source(), b.source()).Collect(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if names(got) != "a1 a2" {
		t.Errorf("partial = %q, want %q", names(got), "a1 a2")
	}
	if b.starts != 0 {
		t.Errorf("b started %d times after error, want 0", b.starts)
	}
}

func TestToList_Sorted(t *testing.T) {
	src := FromSlice(item{src: "a", n: 2}, item{src: "b", n: 1}, item{src: "c", n: 2})
	s := New(src)

	asc, err := s.ToList(context.Background(), "n", false)
	if err != nil {
		t.Fatalf("ToList() error = %v", err)
	}
	if names(asc) != "b1 a2 c2" {
		t.Errorf("ascending = %q, want %q", names(asc), "b1 a2 c2")
	}

	desc, err := s.ToList(context.Background(), "n", true)
	if err != nil {
		t.Fatalf("ToList() error = %v", err)
	}
	if names(desc) != "a2 c2 b1" {
		t.Errorf("descending = %q, want %q", names(desc), "a2 c2 b1")
	}

	if _, err := s.ToList(context.Background(), "bogus", false); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("ToList(bogus) error = %v, want ErrUnknownAttribute", err)
	}
}

func TestToSet(t *testing.T) {
	src := FromSlice(item{src: "a", n: 1}, item{src: "a", n: 1}, item{src: "a", n: 2})

	set, err := New(src).ToSet(context.Background())
	if err != nil {
		t.Fatalf("ToSet() error = %v", err)
	}
	if len(set) != 2 {
		t.Errorf("len = %d, want 2", len(set))
	}
}

func TestWithProgress(t *testing.T) {
	var calls []int
	s := New(FromSlice(items("a", 1, 2, 3, 4, 5)...)).WithProgress(2, func(n int) {
		calls = append(calls, n)
	})

	collect(t, s)
	if fmt.Sprint(calls) != "[2 4]" {
		t.Errorf("progress calls = %v, want [2 4]", calls)
	}
}

func TestSaveCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	records := []item{
		{src: "a", n: 1, created: 10, note: "plain"},
		{src: "a", n: 2, created: 20, note: "line one\nline two, with comma"},
		{src: "b", n: 3, created: 30, note: `quoted "word"`},
	}

	n, err := New(FromSlice(records...)).SaveCSV(path).Write(context.Background())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(records) {
		t.Errorf("written = %d, want %d", n, len(records))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(rows) != len(records)+1 {
		t.Fatalf("rows = %d, want %d", len(rows), len(records)+1)
	}
	if strings.Join(rows[0], ",") != "src,n,created,note" {
		t.Errorf("header = %v", rows[0])
	}
	for i, r := range records {
		if strings.Join(rows[i+1], "\x00") != strings.Join(r.Row(), "\x00") {
			t.Errorf("row %d = %q, want %q", i, rows[i+1], r.Row())
		}
	}
}

func TestSaveCSV_CustomHeaderAndChaining(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := New(FromSlice(items("a", 1, 2, 3)...)).SaveCSV(path, "S", "N", "C", "X")

	var seen []item
	for v, err := range sink.All(context.Background()) {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		seen = append(seen, v)
		if len(seen) == 2 {
			break
		}
	}
	if names(seen) != "a1 a2" {
		t.Errorf("yielded = %q, want %q", names(seen), "a1 a2")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "S,N,C,X\na,1,1,\na,2,2,\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestSaveCSV_EmptyStreamWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	n, err := New[item]().SaveCSV(path).Write(context.Background())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 0 {
		t.Errorf("written = %d, want 0", n)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "src,n,created,note\n" {
		t.Errorf("file = %q", data)
	}
}

func TestSaveCSV_RowWriteFailureReportsFinish(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	long := item{src: "a", n: 1, note: strings.Repeat("x", 8192)}

	n, err := New(FromSlice(long, long)).SaveCSV("/dev/full").Write(context.Background())
	if !errors.Is(err, syscall.ENOSPC) {
		t.Fatalf("Write() error = %v, want ENOSPC", err)
	}
	if n != 0 {
		t.Errorf("written = %d, want 0", n)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("Write() error = %v, want row error joined with finish error", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	s := New(FromSlice(items("a", 1, 2, 3)...)).Limit(2)

	n, err := s.WriteCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "src" || rows[2][1] != "2" {
		t.Errorf("rows = %q", rows)
	}
}

func TestWriteCSV_ErrorAfterRows(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	src := FromSeq(func(yield func(item, error) bool) {
		if !yield(item{src: "a", n: 1}, nil) {
			return
		}
		yield(item{}, boom)
	})

	n, err := New(src).WriteCSV(context.Background(), &buf)
	if !errors.Is(err, boom) {
		t.Fatalf("WriteCSV() error = %v, want boom", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}
	if !strings.HasPrefix(buf.String(), "src,n,created,note\na,1,") {
		t.Errorf("output = %q, want header and first row flushed", buf.String())
	}
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	ts := want.Unix()

	tests := []struct {
		name    string
		in      any
		want    time.Time
		wantErr bool
	}{
		{"nil", nil, time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"time", want.In(time.FixedZone("x", 3600)), want, false},
		{"unix int64", ts, want, false},
		{"unix int", int(ts), want, false},
		{"unix float", float64(ts), want, false},
		{"rfc3339", "2024-03-01T10:30:00Z", want, false},
		{"rfc3339 offset", "2024-03-01T11:30:00+01:00", want, false},
		{"no zone", "2024-03-01T10:30:00", want, false},
		{"space", "2024-03-01 10:30", want, false},
		{"date", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "next tuesday", time.Time{}, true},
		{"unsupported", []int{1}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInstant(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInstant) {
					t.Errorf("error = %v, want ErrInvalidInstant", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseInstant(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromFunc_Deferred(t *testing.T) {
	calls := 0
	src := FromFunc(func(context.Context) (item, error) {
		calls++
		return item{src: "f", n: 1}, nil
	})
	s := New(FromSlice(items("a", 1, 2)...), src)

	collect(t, s.Limit(2))
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	collect(t, s.Limit(3))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
