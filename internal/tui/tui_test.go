package tui

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/download"
	"github.com/bowenkfan/multi-dl/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	mu        sync.Mutex
	settings  config.Settings
	jobs      []*model.Job
	submitted [][2]string
}

func newFakeManager(t *testing.T) *fakeManager {
	settings := config.DefaultSettings()
	settings.DownloadDirectory = t.TempDir()
	settings.WorkDirectory = t.TempDir()
	settings.WorkerCount = 2
	return &fakeManager{settings: *settings}
}

func (f *fakeManager) Submit(source, title string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(source) == "" {
		return nil, download.ErrInvalidSource
	}
	f.submitted = append(f.submitted, [2]string{source, title})
	job := model.NewJob(source, title, f.settings.DownloadDirectory, f.settings.WorkDirectory)
	f.jobs = append(f.jobs, job)
	return job, nil
}

func (f *fakeManager) UpdateConfiguration(u download.ConfigUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.WorkerCount != nil {
		if err := config.ValidateWorkerCount(*u.WorkerCount); err != nil {
			return err
		}
		f.settings.WorkerCount = *u.WorkerCount
	}
	return nil
}

func (f *fakeManager) Settings() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeManager) Jobs() []*model.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Job(nil), f.jobs...)
}

// send feeds msg to the model. Returned commands are not run.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// enter presses enter and feeds the submission result back in.
func enter(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	return send(t, m, cmd())
}

func typeText(t *testing.T, m Model, s string) Model {
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		in        string
		wantURL   string
		wantTitle string
	}{
		{"https://a.example/x", "https://a.example/x", ""},
		{"  https://a.example/x | My Title ", "https://a.example/x", "My Title"},
		{"https://a.example/x|A | B", "https://a.example/x", "A | B"},
		{" | orphan", "", "orphan"},
	}

	for _, tt := range tests {
		url, title := ParseInput(tt.in)
		if url != tt.wantURL || title != tt.wantTitle {
			t.Errorf("ParseInput(%q) = %q, %q; want %q, %q", tt.in, url, title, tt.wantURL, tt.wantTitle)
		}
	}
}

func TestSubmitFromInput(t *testing.T) {
	mgr := newFakeManager(t)
	m := NewModel(mgr, filepath.Join(t.TempDir(), "settings.json"))

	m = typeText(t, m, "https://example.com/v | Evening Mix")
	m = enter(t, m)

	require.Len(t, mgr.submitted, 1)
	assert.Equal(t, [2]string{"https://example.com/v", "Evening Mix"}, mgr.submitted[0])
	assert.Empty(t, m.textInput.Value())
	require.Len(t, m.rows, 1)
	assert.Contains(t, m.View(), "Evening Mix")
}

func TestSubmitEmptyShowsError(t *testing.T) {
	mgr := newFakeManager(t)
	m := NewModel(mgr, filepath.Join(t.TempDir(), "settings.json"))

	m = enter(t, m)

	assert.Empty(t, mgr.submitted)
	assert.Empty(t, m.rows)
	assert.Contains(t, m.notice, "invalid source")
}

func TestEventsUpdateRows(t *testing.T) {
	mgr := newFakeManager(t)
	job, err := mgr.Submit("https://example.com/v", "Song")
	require.NoError(t, err)
	m := NewModel(mgr, filepath.Join(t.TempDir(), "settings.json"))
	require.Len(t, m.rows, 1)

	// Duplicate added events are ignored.
	m = send(t, m, EventMsg{Event: model.JobAdded{Job: job}})
	m = send(t, m, EventMsg{Event: model.StatusChanged{ID: job.ID, Status: model.StatusRunning}})
	m = send(t, m, EventMsg{Event: model.ProgressChanged{ID: job.ID, Percent: 37}})
	m = send(t, m, EventMsg{Event: model.SpeedChanged{ID: job.ID, Text: "2.5 MB/s"}})
	m = send(t, m, EventMsg{Event: model.EtaChanged{ID: job.ID, Text: "00:42"}})
	m = send(t, m, EventMsg{Event: model.ProgressChanged{ID: "unknown", Percent: 99}})

	require.Len(t, m.rows, 1)
	r := m.rows[0]
	assert.Equal(t, model.StatusRunning, r.status)
	assert.Equal(t, 37, r.percent)

	view := m.View()
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "2.5 MB/s")
	assert.Contains(t, view, "00:42")
	assert.Contains(t, view, "37%")

	m = send(t, m, EventMsg{Event: model.StatusChanged{ID: job.ID, Status: model.StatusFailed, Message: "engine failed: 403"}})
	assert.Equal(t, model.StatusFailed, m.rows[0].status)
	assert.Empty(t, m.rows[0].speed)
	assert.Contains(t, m.View(), "engine failed: 403")
}

func TestResizeKeys(t *testing.T) {
	mgr := newFakeManager(t)
	m := NewModel(mgr, filepath.Join(t.TempDir(), "settings.json"))

	// Keys go to the input until focus moves to the table.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.Equal(t, 2, mgr.Settings().WorkerCount)
	assert.Equal(t, "+", m.textInput.Value())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.Equal(t, 3, mgr.Settings().WorkerCount)
	assert.Equal(t, "workers: 3", m.notice)

	for range 5 {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	}
	assert.Equal(t, 1, mgr.Settings().WorkerCount)
	assert.Contains(t, m.notice, "invalid settings")
}

func TestSaveSettings(t *testing.T) {
	mgr := newFakeManager(t)
	path := filepath.Join(t.TempDir(), "conf", "settings.json")
	m := NewModel(mgr, path)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "saved "+path, m.notice)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.WorkerCount)
}

func TestQuitKeys(t *testing.T) {
	mgr := newFakeManager(t)
	m := NewModel(mgr, filepath.Join(t.TempDir(), "settings.json"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	// q is text while typing a URL.
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, "q", next.(Model).textInput.Value())

	m = send(t, next.(Model), tea.KeyMsg{Type: tea.KeyTab})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, 5, len([]rune(truncate("ünïcödé strïng", 5))))
}
