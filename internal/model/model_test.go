package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed}
	allowed := map[[2]Status]bool{
		{StatusQueued, StatusRunning}:    true,
		{StatusRunning, StatusCompleted}: true,
		{StatusRunning, StatusFailed}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob("https://example.com/v/1", "", "/out", "/work")

	if job.ID == "" {
		t.Fatal("NewJob should assign an ID")
	}
	if job.Status() != StatusQueued {
		t.Fatalf("new job status = %s, want queued", job.Status())
	}
	if err := job.Transition(StatusCompleted, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("queued -> completed err = %v, want ErrInvalidTransition", err)
	}

	if err := job.Transition(StatusRunning, nil); err != nil {
		t.Fatalf("queued -> running: %v", err)
	}
	job.SetProgress(40)
	job.SetSpeed(2048)
	job.SetETA(30)

	if err := job.Transition(StatusFailed, errors.New("boom")); err != nil {
		t.Fatalf("running -> failed: %v", err)
	}
	if _, ok := job.Speed(); ok {
		t.Error("speed should be cleared on terminal status")
	}
	if _, ok := job.ETA(); ok {
		t.Error("eta should be cleared on terminal status")
	}
	if job.Err() != "boom" {
		t.Errorf("Err() = %q, want %q", job.Err(), "boom")
	}
	if job.Progress() != 40 {
		t.Errorf("Progress() = %d, want 40", job.Progress())
	}

	for _, to := range []Status{StatusQueued, StatusRunning, StatusCompleted} {
		if err := job.Transition(to, nil); err == nil {
			t.Errorf("failed -> %s should be rejected", to)
		}
	}
}

func TestJob_IDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewJob("src", "", "", "").ID
		if seen[id] {
			t.Fatalf("duplicate job id %q", id)
		}
		seen[id] = true
	}
}

func TestJob_DisplayTitle(t *testing.T) {
	tests := []struct {
		source string
		title  string
		want   string
	}{
		{"https://example.com/a", "My Clip", "My Clip"},
		{"https://example.com/a", "", "https://example.com/a"},
	}

	for _, tt := range tests {
		job := NewJob(tt.source, tt.title, "", "")
		if got := job.DisplayTitle(); got != tt.want {
			t.Errorf("DisplayTitle(%q, %q) = %q, want %q", tt.source, tt.title, got, tt.want)
		}
	}
}

func TestJob_SetProgressClamps(t *testing.T) {
	tests := []struct {
		input int
		want  int
	}{
		{-5, 0},
		{0, 0},
		{51, 51},
		{100, 100},
		{140, 100},
	}

	job := NewJob("src", "", "", "")
	for _, tt := range tests {
		job.SetProgress(tt.input)
		if got := job.Progress(); got != tt.want {
			t.Errorf("SetProgress(%d) -> %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestJob_SnapshotJSON(t *testing.T) {
	job := NewJob("https://example.com/a", "Clip", "/out", "/work")
	if err := job.Transition(StatusRunning, nil); err != nil {
		t.Fatal(err)
	}
	job.SetSpeed(1024)

	data, err := json.Marshal(job.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["status"] != "running" {
		t.Errorf("status = %v, want running", decoded["status"])
	}
	if decoded["bytes_per_sec"] != float64(1024) {
		t.Errorf("bytes_per_sec = %v, want 1024", decoded["bytes_per_sec"])
	}
	if _, ok := decoded["eta_seconds"]; ok {
		t.Error("eta_seconds should be omitted until reported")
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed} {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStatus("paused"); err == nil {
		t.Error("ParseStatus(\"paused\") should fail")
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{1024 * 1024, "1.0 MB/s"},
		{1.5 * 1024 * 1024, "1.5 MB/s"},
		{512 * 1024, "0.5 MB/s"},
		{10, "0.0 MB/s"},
	}

	for _, tt := range tests {
		if got := FormatSpeed(tt.input); got != tt.want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		input int
		want  string
	}{
		{0, "00:00"},
		{75, "01:15"},
		{3599, "59:59"},
		{3600, "1 hrs+"},
		{7300, "2 hrs+"},
		{-3, "00:00"},
	}

	for _, tt := range tests {
		if got := FormatETA(tt.input); got != tt.want {
			t.Errorf("FormatETA(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEventKinds(t *testing.T) {
	job := NewJob("src", "", "", "")
	events := []struct {
		ev   Event
		kind EventKind
	}{
		{JobAdded{Job: job}, EventAdded},
		{StatusChanged{ID: job.ID, Status: StatusRunning}, EventStatusChanged},
		{ProgressChanged{ID: job.ID, Percent: 3}, EventProgressChanged},
		{SpeedChanged{ID: job.ID}, EventSpeedChanged},
		{EtaChanged{ID: job.ID}, EventEtaChanged},
	}

	for _, tt := range events {
		if tt.ev.Kind() != tt.kind {
			t.Errorf("%T.Kind() = %s, want %s", tt.ev, tt.ev.Kind(), tt.kind)
		}
		if tt.ev.JobID() != job.ID {
			t.Errorf("%T.JobID() = %q, want %q", tt.ev, tt.ev.JobID(), job.ID)
		}
	}
}
