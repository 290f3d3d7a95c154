package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nscl-frib/spyralgo/internal/tpc"
)

func TestEventStreamEachDecodesEveryLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	data := `{"EventID":1,"PadTraces":[{"PadID":0,"Samples":[1,2,3]}]}
{"EventID":2,"PadTraces":[]}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write events file: %v", err)
	}

	es, err := openEventStream(path)
	if err != nil {
		t.Fatalf("openEventStream: %v", err)
	}
	defer es.Close()

	var frames []tpc.EventFrame
	if err := es.Each(context.Background(), func(f tpc.EventFrame) {
		frames = append(frames, f)
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].EventID != 1 || len(frames[0].PadTraces) != 1 {
		t.Errorf("frames[0] = %+v, unexpected shape", frames[0])
	}
	if frames[1].EventID != 2 {
		t.Errorf("frames[1].EventID = %d, want 2", frames[1].EventID)
	}
}

func TestEventStreamEachStopsOnCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	data := `{"EventID":1}
{"EventID":2}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write events file: %v", err)
	}

	es, err := openEventStream(path)
	if err != nil {
		t.Fatalf("openEventStream: %v", err)
	}
	defer es.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = es.Each(ctx, func(tpc.EventFrame) {})
	if err == nil {
		t.Error("expected Each to return the cancellation error")
	}
}

func TestOpenEventStreamRequiresPath(t *testing.T) {
	if _, err := openEventStream(""); err == nil {
		t.Error("expected an error for an empty events path")
	}
}

func TestOpenEventStreamMissingFile(t *testing.T) {
	if _, err := openEventStream(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected an error for a missing events file")
	}
}
