// Package tui provides a Bubble Tea terminal user interface for multi-dl.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/download"
	"github.com/bowenkfan/multi-dl/internal/model"
	"github.com/bowenkfan/multi-dl/internal/session"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))
)

const (
	titleWidth  = 32
	statusWidth = 10
	barWidth    = 24
)

// Manager is the part of download.Manager the TUI drives.
type Manager interface {
	Submit(source, title string) (*model.Job, error)
	UpdateConfiguration(u download.ConfigUpdate) error
	Settings() config.Settings
	Jobs() []*model.Job
}

// focus selects which part of the screen receives keys.
type focus int

const (
	focusInput focus = iota
	focusTable
)

// row is the rendered state of one job.
type row struct {
	id      string
	title   string
	status  model.Status
	percent int
	speed   string
	eta     string
	message string
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	manager      Manager
	settingsPath string

	focus     focus
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model

	rows  []*row
	index map[string]*row

	notice      string
	noticeStyle lipgloss.Style

	width  int
	height int
}

// NewModel creates a TUI model over mgr. Jobs already known to mgr are
// shown immediately. ctrl+s writes the settings to settingsPath.
func NewModel(mgr Manager, settingsPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "https://example.com/watch?v=... | optional title"
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 70

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	prog.Width = barWidth

	m := Model{
		manager:      mgr,
		settingsPath: settingsPath,
		textInput:    ti,
		spinner:      sp,
		progress:     prog,
		index:        make(map[string]*row),
	}
	for _, job := range mgr.Jobs() {
		m.addJob(job)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// EventMsg carries a manager event into the program.
	EventMsg struct {
		Event model.Event
	}

	// submittedMsg reports the result of a submission.
	submittedMsg struct {
		job *model.Job
		err error
	}

	// clearNoticeMsg hides the status line after a while.
	clearNoticeMsg struct {
		notice string
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = max(20, min(100, msg.Width-10))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+s":
			cmd := m.saveSettings()
			return m, cmd

		case "tab":
			if m.focus == focusInput {
				m.focus = focusTable
				m.textInput.Blur()
			} else {
				m.focus = focusInput
				cmds = append(cmds, m.textInput.Focus())
			}
			return m, tea.Batch(cmds...)
		}

		if m.focus == focusTable {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "+", "=":
				cmd := m.resize(1)
				return m, cmd
			case "-", "_":
				cmd := m.resize(-1)
				return m, cmd
			}
			return m, nil
		}

		if msg.Type == tea.KeyEnter {
			line := m.textInput.Value()
			m.textInput.SetValue("")
			return m, m.submit(line)
		}

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			cmd := m.setNotice(msg.err.Error(), true)
			return m, cmd
		}
		m.addJob(msg.job)
		return m, nil

	case clearNoticeMsg:
		if m.notice == msg.notice {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.focus == focusInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// ParseInput splits "url | title" into its parts. The title is optional.
func ParseInput(s string) (url, title string) {
	url, title, _ = strings.Cut(s, "|")
	return strings.TrimSpace(url), strings.TrimSpace(title)
}

// submit queues the input line off the event loop: Submit publishes the
// added event synchronously, and that event is delivered through
// Program.Send.
func (m Model) submit(line string) tea.Cmd {
	url, title := ParseInput(line)
	return func() tea.Msg {
		job, err := m.manager.Submit(url, title)
		return submittedMsg{job: job, err: err}
	}
}

func (m *Model) resize(delta int) tea.Cmd {
	n := m.manager.Settings().WorkerCount + delta
	if err := m.manager.UpdateConfiguration(download.ConfigUpdate{WorkerCount: &n}); err != nil {
		return m.setNotice(err.Error(), true)
	}
	return m.setNotice(fmt.Sprintf("workers: %d", n), false)
}

func (m *Model) saveSettings() tea.Cmd {
	settings := m.manager.Settings()
	if err := settings.Save(m.settingsPath); err != nil {
		return m.setNotice("save failed: "+err.Error(), true)
	}
	return m.setNotice("saved "+m.settingsPath, false)
}

// setNotice shows text on the status line for a few seconds.
func (m *Model) setNotice(text string, failed bool) tea.Cmd {
	m.notice = text
	m.noticeStyle = infoStyle
	if failed {
		m.noticeStyle = errorStyle
	}
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{notice: text}
	})
}

func (m *Model) addJob(job *model.Job) {
	if _, ok := m.index[job.ID]; ok {
		return
	}
	snap := job.Snapshot()
	r := &row{
		id:      job.ID,
		title:   job.DisplayTitle(),
		status:  snap.Status,
		percent: snap.Progress,
		message: snap.Error,
	}
	if snap.BytesPerSec != nil {
		r.speed = model.FormatSpeed(*snap.BytesPerSec)
	}
	if snap.ETASeconds != nil {
		r.eta = model.FormatETA(*snap.ETASeconds)
	}
	m.rows = append(m.rows, r)
	m.index[job.ID] = r
}

// apply folds one event into the table.
func (m *Model) apply(ev model.Event) {
	if added, ok := ev.(model.JobAdded); ok {
		m.addJob(added.Job)
		return
	}

	r, ok := m.index[ev.JobID()]
	if !ok {
		return
	}

	switch e := ev.(type) {
	case model.StatusChanged:
		r.status = e.Status
		r.message = e.Message
		if e.Status.IsTerminal() {
			r.speed, r.eta = "", ""
		}
	case model.ProgressChanged:
		r.percent = e.Percent
	case model.SpeedChanged:
		r.speed = e.Text
	case model.EtaChanged:
		r.eta = e.Text
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("multi-dl"))
	b.WriteString("\n")

	settings := m.manager.Settings()
	b.WriteString(dimStyle.Render(fmt.Sprintf("workers: %d • saving to %s", settings.WorkerCount, settings.DownloadDirectory)))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render("Add download:"))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(m.viewTable())

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewTable() string {
	if len(m.rows) == 0 {
		return dimStyle.Render("No downloads yet.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %5s %12s %8s",
		titleWidth, "TITLE", statusWidth, "STATUS", barWidth, "PROGRESS", "", "SPEED", "ETA")))
	b.WriteString("\n")

	for _, r := range m.rows {
		b.WriteString(fmt.Sprintf("%-*s ", titleWidth, truncate(r.title, titleWidth)))
		b.WriteString(m.renderStatus(r))
		b.WriteString(" ")
		b.WriteString(m.progress.ViewAs(float64(r.percent) / 100))
		b.WriteString(fmt.Sprintf(" %4d%% %12s %8s", r.percent, r.speed, r.eta))
		b.WriteString("\n")
		if r.status == model.StatusFailed && r.message != "" {
			b.WriteString(errorStyle.Render("  ✗ " + truncate(r.message, 100)))
			b.WriteString("\n")
		}
	}

	counts := make(map[model.Status]int)
	for _, r := range m.rows {
		counts[r.status]++
	}
	b.WriteString("\n")
	if counts[model.StatusRunning] > 0 {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("%d queued • %d running • %d completed • %d failed",
		counts[model.StatusQueued], counts[model.StatusRunning], counts[model.StatusCompleted], counts[model.StatusFailed])))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderStatus(r *row) string {
	text := fmt.Sprintf("%-*s", statusWidth, r.status.String())
	switch r.status {
	case model.StatusRunning:
		return warningStyle.Render(text)
	case model.StatusCompleted:
		return successStyle.Render(text)
	case model.StatusFailed:
		return errorStyle.Render(text)
	default:
		return dimStyle.Render(text)
	}
}

func (m Model) helpText() string {
	if m.focus == focusInput {
		return "enter: add • tab: jobs • ctrl+s: save settings • ctrl+c: quit"
	}
	return "+/-: workers • tab: add download • ctrl+s: save settings • q: quit"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run builds a download manager from settings and runs the TUI until the
// user quits. Running jobs are given closeTimeout to finish afterwards.
func Run(ctx context.Context, settings *config.Settings, settingsPath string, logger *slog.Logger) error {
	mgr, err := session.NewManager(ctx, settings, logger)
	if err != nil {
		return err
	}
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(NewModel(mgr, settingsPath), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := mgr.Subscribe(func(ev model.Event) {
		p.Send(EventMsg{Event: ev})
	})

	_, runErr := p.Run()
	unsubscribe()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := mgr.Close(closeCtx); err != nil {
		logger.Warn("download manager did not close cleanly", "error", err)
	}

	return runErr
}

const closeTimeout = 10 * time.Second
