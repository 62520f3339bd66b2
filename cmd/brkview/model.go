package main

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/brkalloc/alloc"
	"github.com/joshuapare/brkalloc/internal/logger"
	"github.com/joshuapare/brkalloc/internal/report"
	"github.com/joshuapare/brkalloc/internal/workload"
)

// Layout constants
const (
	HeaderHeight  = 1 // title line
	CounterHeight = 6 // counter panel including its border
	StatusHeight  = 2 // status line and help line
	minTableRows  = 3
)

const (
	defaultOpsPerTick = 50
	maxOpsPerTick     = 50000
	tickInterval      = 200 * time.Millisecond
)

// tickMsg drives the workload while the view is running.
type tickMsg time.Time

// AllocFactory builds the allocator a session runs against.
type AllocFactory func(cfg alloc.Config) (*alloc.Allocator, error)

// Model is the main application model
type Model struct {
	cfg      alloc.Config
	seed     uint64
	maxSize  int
	newAlloc AllocFactory

	a      *alloc.Allocator
	driver *workload.Driver

	table table.Model
	help  help.Model
	keys  KeyMap

	paused     bool
	opsPerTick int
	showAll    bool

	width  int
	height int

	// Status message for temporary feedback
	statusMessage string

	// copyText writes to the system clipboard; replaced in tests.
	copyText func(string) error

	err error
}

// NewModel creates a model and starts its first session.
func NewModel(cfg alloc.Config, seed uint64, newAlloc AllocFactory) Model {
	t := table.New(
		table.WithColumns(classColumns()),
		table.WithFocused(true),
		table.WithHeight(16),
	)
	t.SetStyles(tableStyles())

	m := Model{
		cfg:        cfg,
		seed:       seed,
		maxSize:    2 * cfg.MaxSmall,
		newAlloc:   newAlloc,
		table:      t,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		opsPerTick: defaultOpsPerTick,
		copyText:   clipboard.WriteAll,
	}
	m.err = m.reset()
	m.refresh()
	return m
}

func classColumns() []table.Column {
	return []table.Column{
		{Title: "Class", Width: 5},
		{Title: "Size", Width: 6},
		{Title: "Total", Width: 8},
		{Title: "Free", Width: 8},
		{Title: "In use", Width: 8},
		{Title: "Bytes", Width: 12},
		{Title: "Use", Width: 12},
	}
}

// reset closes the current allocator, if any, and starts a fresh session.
func (m *Model) reset() error {
	if err := m.Close(); err != nil {
		logger.Warn("closing previous allocator", "error", err)
	}
	a, err := m.newAlloc(m.cfg)
	if err != nil {
		return err
	}
	m.a = a
	m.driver = workload.New(a, workload.Options{Seed: m.seed, MaxSize: m.maxSize})
	logger.Info("session started", "config", m.cfg.String(), "seed", m.seed)
	return nil
}

// Close releases the allocator of the current session.
func (m *Model) Close() error {
	if m.a == nil {
		return nil
	}
	err := m.a.Close()
	m.a, m.driver = nil, nil
	return err
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles ticks, key presses and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if !m.paused && m.err == nil && m.driver != nil {
			m.run(m.opsPerTick)
		}
		return m, tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(minTableRows, msg.Height-HeaderHeight-CounterHeight-StatusHeight-2))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			m.statusMessage = ""
		case key.Matches(msg, m.keys.Step):
			m.paused = true
			if m.err == nil && m.driver != nil {
				m.run(1)
			}
		case key.Matches(msg, m.keys.Faster):
			m.opsPerTick = min(maxOpsPerTick, m.opsPerTick*2)
			m.statusMessage = fmt.Sprintf("%d ops per tick", m.opsPerTick)
		case key.Matches(msg, m.keys.Slower):
			m.opsPerTick = max(1, m.opsPerTick/2)
			m.statusMessage = fmt.Sprintf("%d ops per tick", m.opsPerTick)
		case key.Matches(msg, m.keys.Reset):
			m.err = m.reset()
			m.statusMessage = "New allocator"
			m.refresh()
		case key.Matches(msg, m.keys.Verify):
			m.verify()
		case key.Matches(msg, m.keys.Copy):
			m.copyStats()
		case key.Matches(msg, m.keys.AllClasses):
			m.showAll = !m.showAll
			m.refresh()
		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	return m, nil
}

// run advances the workload by n steps and refreshes the table. A failing
// step stops the session.
func (m *Model) run(n int) {
	if err := m.driver.Run(n); err != nil {
		logger.Error("workload step failed", "error", err)
		m.err = err
	}
	m.refresh()
}

func (m *Model) verify() {
	if m.a == nil {
		return
	}
	if err := m.a.Verify(); err != nil {
		logger.Error("verify failed", "error", err)
		m.err = err
		return
	}
	m.statusMessage = "Free lists verified"
}

func (m *Model) copyStats() {
	if m.a == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteStats(&buf, m.a.Stats(), report.Options{AllClasses: m.showAll}); err != nil {
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	if err := m.copyText(buf.String()); err != nil {
		logger.Warn("clipboard write failed", "error", err)
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	m.statusMessage = "Stats copied to clipboard"
}

// refresh rebuilds the class rows from the allocator's counters.
func (m *Model) refresh() {
	if m.a == nil {
		m.table.SetRows(nil)
		return
	}
	stats := m.a.Stats()
	rows := make([]table.Row, 0, len(stats.Classes))
	for _, c := range stats.Classes {
		if c.Total == 0 && !m.showAll {
			continue
		}
		rows = append(rows, table.Row{
			strconv.Itoa(c.Class),
			strconv.Itoa(c.Size),
			report.FormatNumber(int64(c.Total)),
			report.FormatNumber(int64(c.Free)),
			report.FormatNumber(int64(c.InUse())),
			report.FormatNumber(int64(c.Total) * int64(c.Size+alloc.HeaderSize)),
			usageBar(c.InUse(), c.Total, 10),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// usageBar renders used/total as a bar of width cells.
func usageBar(used, total, width int) string {
	filled := 0
	if total > 0 {
		filled = (used*width + total - 1) / total
	}
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
