package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/pkg/models"
)

// statusMsg carries one polling round's results.
type statusMsg struct {
	queue  orchestrator.QueueStatus
	system orchestrator.SystemStatus
}

// statusErrMsg signals a failed poll; the watcher keeps retrying.
type statusErrMsg struct{ err error }

// tickMsg schedules the next poll.
type tickMsg time.Time

// WatchModel is the bubbletea model for the status watcher.
type WatchModel struct {
	client  *StatusClient
	refresh time.Duration

	spinner    spinner.Model
	queue      orchestrator.QueueStatus
	system     orchestrator.SystemStatus
	err        error
	lastUpdate time.Time
	width      int

	headerStyle lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	urgentStyle lipgloss.Style
	errStyle    lipgloss.Style
	okStyle     lipgloss.Style
}

// NewWatchModel creates a watcher polling the given client.
func NewWatchModel(client *StatusClient, refresh time.Duration) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return WatchModel{
		client:  client,
		refresh: refresh,
		spinner: sp,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),
		labelStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14),
		valueStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		urgentStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		errStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		okStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}
}

// Init starts the spinner and the first poll.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// Update handles polling results, timers, and key input.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.queue = msg.queue
		m.system = msg.system
		m.err = nil
		m.lastUpdate = time.Now()
		return m, m.tick()

	case statusErrMsg:
		m.err = msg.err
		return m, m.tick()

	case tickMsg:
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the queue depths and worker table.
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(m.headerStyle.Render("relay " + m.spinner.View()))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.errStyle.Render(fmt.Sprintf("poll failed: %v (retrying)", m.err)))
		b.WriteString("\n\n")
	}

	running := m.errStyle.Render("stopped")
	if m.queue.Running {
		running = m.okStyle.Render("running")
	}
	b.WriteString(m.labelStyle.Render("dispatch") + running + "\n")

	for _, p := range models.Priorities {
		style := m.valueStyle
		if p == models.PriorityUrgent && m.queue.Pending[p] > 0 {
			style = m.urgentStyle
		}
		b.WriteString(m.labelStyle.Render(string(p)) + style.Render(fmt.Sprintf("%d", m.queue.Pending[p])) + "\n")
	}
	b.WriteString(m.labelStyle.Render("in flight") + m.valueStyle.Render(fmt.Sprintf("%d", m.queue.InFlight)) + "\n")
	b.WriteString(m.labelStyle.Render("completed") + m.valueStyle.Render(fmt.Sprintf("%d", m.queue.Completed)) + "\n")
	if m.queue.DroppedEvents > 0 {
		b.WriteString(m.labelStyle.Render("dropped ev") + m.errStyle.Render(fmt.Sprintf("%d", m.queue.DroppedEvents)) + "\n")
	}

	if len(m.system.Workers) > 0 {
		b.WriteString("\n")
		b.WriteString(m.headerStyle.Render("workers"))
		b.WriteString("\n")
		for _, id := range sortedWorkers(m.system.Workers) {
			ws := m.system.Workers[id]
			line := fmt.Sprintf("%-14s done=%-4d failed=%-4d success=%3.0f%%",
				id, ws.Completed, ws.Failed, ws.SuccessRate*100)
			b.WriteString(m.valueStyle.Render(line) + "\n")
		}
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString("\n" + m.labelStyle.Render("updated") + m.lastUpdate.Format("15:04:05") + "\n")
	}
	b.WriteString("\nq to quit\n")
	return b.String()
}

func (m WatchModel) poll() tea.Cmd {
	return func() tea.Msg {
		queue, err := m.client.FetchQueue()
		if err != nil {
			return statusErrMsg{err}
		}
		system, err := m.client.FetchSystem()
		if err != nil {
			return statusErrMsg{err}
		}
		return statusMsg{queue: queue, system: system}
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func sortedWorkers(stats map[models.WorkerID]orchestrator.WorkerStats) []models.WorkerID {
	ids := make([]models.WorkerID, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Run starts the watcher against the given base URL and blocks until quit.
func Run(baseURL string, refresh time.Duration) error {
	model := NewWatchModel(NewStatusClient(baseURL), refresh)
	_, err := tea.NewProgram(model).Run()
	return err
}
