package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestNew_ConsoleLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"default", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Options{Console: &buf, Verbose: tt.verbose})

			l.Debug("debug line")
			l.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v; output:\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "INFO info line") {
				t.Errorf("missing info line; output:\n%s", out)
			}
		})
	}
}

func TestNew_FansOutToTail(t *testing.T) {
	var console bytes.Buffer
	tail := NewTailBuffer(10)
	l := New(Options{Console: &console, Tail: tail})

	l.Debug("request sent", "model", "gpt-image-1.5")
	l.Warn("history disabled")

	if strings.Contains(console.String(), "request sent") {
		t.Error("debug record reached the non-verbose console")
	}

	lines := tail.Lines()
	if len(lines) != 2 {
		t.Fatalf("tail has %d lines, want 2: %v", len(lines), lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("tail line is not JSON: %v", err)
	}
	if rec["msg"] != "request sent" || rec["model"] != "gpt-image-1.5" || rec["level"] != "DEBUG" {
		t.Errorf("tail record = %v", rec)
	}
}

func TestNew_NoOutputs(t *testing.T) {
	l := New(Options{})
	if l.Enabled(t.Context(), slog.LevelError) {
		t.Error("logger without outputs should be disabled")
	}
}

func TestConsoleHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, slog.LevelDebug)).
		With("provider", "openai").
		WithGroup("req")

	l.Info("saved", "path", "out/slide 1.png", slog.Group("size", "w", 1536, "h", 864))

	want := `INFO saved provider=openai req.path="out/slide 1.png" req.size.w=1536 req.size.h=864` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleHandler_LevelLabels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, slog.LevelDebug))

	l.Debug("d")
	l.Warn("w")
	l.Error("e")

	want := "DEBUG d\nWARN w\nERROR e\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTailBuffer(t *testing.T) {
	tail := NewTailBuffer(3)

	for i := 0; i < 5; i++ {
		fmt.Fprintf(tail, "line %d\n", i)
	}
	tail.Write([]byte("partial"))

	got := tail.Lines()
	want := []string{"line 2", "line 3", "line 4"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Lines() = %v, want %v", got, want)
	}

	tail.Write([]byte(" done\n"))
	got = tail.Lines()
	if got[len(got)-1] != "partial done" {
		t.Errorf("last line = %q, want %q", got[len(got)-1], "partial done")
	}
}

func TestNewTailBuffer_DefaultSize(t *testing.T) {
	if tb := NewTailBuffer(0); tb.size != defaultTailSize {
		t.Errorf("size = %d, want %d", tb.size, defaultTailSize)
	}
}
