package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws a live progress panel with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *downloadModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer fails when the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, errors.New("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newDownloadModel(tracker, cfg.Collection)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var runCtx context.Context
	runCtx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(runCtx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Apply(event)
	r.send(refreshMsg{})
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
	r.send(refreshMsg{})
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.Finish()
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer. It waits briefly for the program to draw its
// last frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type refreshMsg struct{}
type completeMsg CompletionStats
type tickMsg time.Time

// downloadModel is the bubbletea model behind TUIRenderer.
type downloadModel struct {
	tracker    *ProgressTracker
	collection string
	width      int
	quitting   bool
	complete   bool
	stats      CompletionStats
	spinner    spinner.Model
	bar        progress.Model
	styles     Styles
}

func newDownloadModel(tracker *ProgressTracker, collection string) *downloadModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &downloadModel{
		tracker:    tracker,
		collection: collection,
		width:      80,
		spinner:    s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

func (m *downloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The download keeps running; only the display goes away.
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 20)

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *downloadModel) View() string {
	if m.quitting {
		return "Display closed; download continues in the background.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	width := max(m.width-4, 40)
	stats := m.tracker.Stats()

	lines := []string{m.renderHeader(stats), m.renderBar(stats), m.renderCounts(stats)}
	if spark := m.tracker.Sparkline(width - 12); strings.TrimSpace(spark) != "" {
		lines = append(lines, m.styles.Spark.Render(spark)+" "+m.styles.Dim.Render("docs/s"))
	}
	if stats.CurrentFile != "" {
		lines = append(lines, m.styles.Dim.Render(truncatePath(stats.CurrentFile, width-2)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width)

	title := "fcmirror"
	if m.collection != "" {
		title += " • " + m.collection
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(truncatePath(title, width)),
		panel.Render(strings.Join(lines, "\n")),
		m.renderStatus(stats),
	)
}

func (m *downloadModel) renderHeader(stats ProgressStats) string {
	return m.spinner.View() + " " + m.styles.Active.Render(stats.Stage.String())
}

func (m *downloadModel) renderBar(stats ProgressStats) string {
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Percent))
	return m.bar.ViewAs(stats.Percent/100) + "  " + pct
}

func (m *downloadModel) renderCounts(stats ProgressStats) string {
	parts := []string{
		fmt.Sprintf("%d documents", stats.Processed),
		fmt.Sprintf("%d skipped", stats.Skipped),
		FormatBytes(stats.Bytes),
	}
	if stats.ETA > 0 {
		parts = append(parts, "ETA "+formatDuration(stats.ETA))
	}
	return m.styles.Label.Render(strings.Join(parts, "  •  "))
}

func (m *downloadModel) renderStatus(stats ProgressStats) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	parts = append(parts, m.styles.Dim.Render("q to hide"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *downloadModel) renderComplete() string {
	var lines []string
	border := ColorGreen

	switch m.stats.Outcome {
	case "completed":
		lines = append(lines, m.styles.Success.Render("✓ Mirror complete"))
	case "failed":
		border = ColorRed
		lines = append(lines, m.styles.Error.Render("✗ Mirror failed"))
		if m.stats.Err != nil {
			lines = append(lines, m.styles.Error.Render(m.stats.Err.Error()))
		}
	default:
		border = ColorYellow
		lines = append(lines, m.styles.Warning.Render("Not started: no destination selected"))
	}

	if m.stats.Outcome != "not_started" {
		label := m.styles.Label.Render
		value := m.styles.Active.Render
		lines = append(lines, "",
			label("Downloaded: ")+value(fmt.Sprint(m.stats.Downloaded)),
			label("Skipped:    ")+value(fmt.Sprint(m.stats.Skipped)),
			label("Size:       ")+value(FormatBytes(m.stats.Bytes)),
			label("Duration:   ")+value(formatDuration(m.stats.Duration)),
		)
		if m.stats.Destination != "" {
			lines = append(lines, label("Into:       ")+m.stats.Destination)
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(max(m.width-4, 40)).
		Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
