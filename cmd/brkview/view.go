package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/brkalloc/internal/report"
)

// View renders the header, counters, class table and status line.
func (m Model) View() string {
	var b strings.Builder

	title := headerStyle.Render("brkview")
	cfg := configStyle.Render(fmt.Sprintf("%s  align %d  max small %d  zero %s  seed %d",
		m.cfg, m.cfg.Align, m.cfg.MaxSmall, m.cfg.ZeroMode, m.seed))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, " ", cfg))
	b.WriteString("\n")

	b.WriteString(m.countersView())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m Model) countersView() string {
	if m.a == nil {
		return panelStyle.Render(labelStyle.Render("no allocator"))
	}
	s := m.a.Stats()
	steps := 0
	if m.driver != nil {
		steps = m.driver.Steps()
	}

	cell := func(label, value string) string {
		return labelStyle.Render(label+" ") + valueStyle.Render(value)
	}
	n := func(v int) string { return report.FormatNumber(int64(v)) }

	col1 := strings.Join([]string{
		cell("steps", n(steps)),
		cell("allocs", n(s.AllocCalls)),
		cell("frees", n(s.FreeCalls)),
		cell("reallocs", n(s.ReallocCalls)),
	}, "\n")
	col2 := strings.Join([]string{
		cell("small", n(s.SmallAllocs)),
		cell("large", n(s.LargeAllocs)),
		cell("failed", n(s.FailedAllocs)),
		cell("callocs", n(s.ZeroCalls)),
	}, "\n")
	col3 := strings.Join([]string{
		cell("grow steps", n(s.GrowCalls)),
		cell("break", report.FormatBytes(s.BreakBytes)),
		cell("live mapped", fmt.Sprintf("%d (%s)", s.LiveMapped, report.FormatBytes(s.LiveMappedBytes))),
		cell("unmap failures", n(s.UnmapFailures)),
	}, "\n")

	gap := "    "
	return panelStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, col1, gap, col2, gap, col3))
}

func (m Model) statusView() string {
	var state string
	switch {
	case m.err != nil:
		state = errorStyle.Render("STOPPED: " + m.err.Error())
	case m.paused:
		state = pausedStyle.Render("PAUSED")
	default:
		state = runningStyle.Render(fmt.Sprintf("RUNNING %d ops/tick", m.opsPerTick))
	}
	if m.statusMessage != "" {
		state += "  " + m.statusMessage
	}
	return statusStyle.Render(state)
}
