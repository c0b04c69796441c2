package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeLog writes n row fetch log lines, the i-th fetching from row i*10.
func writeLog(t *testing.T, n int) (string, []string) {
	t.Helper()
	var lines []string
	for i := 1; i <= n; i++ {
		lines = append(lines, fmt.Sprintf(`{"level":"debug","component":"rows","first":%d,"message":"fetching rows"}`, i*10))
	}
	path := filepath.Join(t.TempDir(), "lattice.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, lines
}

func TestReadKeepsNewestLines(t *testing.T) {
	path, lines := writeLog(t, 6)

	cases := map[int][]string{
		0:  nil,
		1:  lines[5:],
		4:  lines[2:],
		6:  lines,
		50: lines,
	}
	for want, expected := range cases {
		got, err := Read(path, want)
		if err != nil {
			t.Fatalf("Read(%d): %v", want, err)
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("Read(%d) returned %d lines, want %d: %v", want, len(got), len(expected), got)
		}
	}
}

func TestTailFormatsFetchLog(t *testing.T) {
	path, _ := writeLog(t, 3)
	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Format())
	}
	want := []string{"DBG [rows] fetching rows first=20", "DBG [rows] fetching rows first=30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tail() = %q, want %q", got, want)
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "not json",
			expected: "not json",
		},
		{
			name:     "structured line",
			input:    `{"level":"warn","component":"poller","failures":2,"error":"timeout","time":"2026-10-08T21:01:05Z","message":"row count refresh failed"}`,
			expected: "21:01:05 WRN [poller] row count refresh failed error=timeout failures=2",
		},
		{
			name:     "no component",
			input:    `{"level":"info","message":"styles invalidated"}`,
			expected: "INF styles invalidated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.input).Format(); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "lattice.log")
	body := `{"level":"info","message":"one"}` + "\n" + `{"level":"error","message":"two"}` + "\n"
	if err := os.WriteFile(logPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := Tail(logPath, 1)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Level != "error" || entries[0].Message != "two" {
		t.Errorf("Tail() = %+v", entries)
	}
}
