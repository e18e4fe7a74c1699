package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/borrowd/pkg/client"
)

const (
	pollRate       = time.Second
	requestTimeout = 800 * time.Millisecond
	maxEvents      = 20
	viewportHeight = 12
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Width(14)
	itemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	eventTimeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	eventTypeStyle    = lipgloss.NewStyle().Width(20).Bold(true)
	eventSubjectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
)

// API is the part of the SDK the dashboard reads from.
type API interface {
	People(ctx context.Context) ([]client.Person, error)
	Events(ctx context.Context, opts client.EventsOptions) ([]client.Event, error)
	BorrowPath(ctx context.Context, name, item string) (client.BorrowPath, error)
}

type tickMsg time.Time

type dataMsg struct {
	people []client.Person
	events []client.Event
	err    error
}

type pathMsg struct {
	query string
	path  client.BorrowPath
	err   error
}

type model struct {
	api      API
	spinner  spinner.Model
	viewport viewport.Model
	input    textinput.Model
	people   []client.Person
	events   []client.Event
	lookup   string
	err      error
	ready    bool
}

func initialModel(api API) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "name item (e.g. Nikodem statyw)"
	ti.Prompt = "borrow> "
	ti.Focus()

	return model{
		api:      api,
		spinner:  s,
		viewport: newViewport(100),
		input:    ti,
	}
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		fetchData(m.api),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if query == "" {
				return m, nil
			}
			return m, findPath(m.api, query)
		case tea.KeyPgUp, tea.KeyPgDown:
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.api), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.people = msg.people
			m.events = msg.events
			m.viewport.SetContent(renderEvents(m.events))
		}
		m.ready = true

	case pathMsg:
		m.lookup = renderPath(msg)

	case tea.WindowSizeMsg:
		m.viewport = newViewport(msg.Width)
		m.viewport.SetContent(renderEvents(m.events))
		m.ready = true
	}

	return m, tea.Batch(cmds...)
}

func renderEvents(events []client.Event) string {
	var sb strings.Builder
	for _, e := range events {
		subject := e.Subject.Identity
		if e.Subject.Counterpart != "" {
			subject += " & " + e.Subject.Counterpart
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			eventTimeStyle.Render(e.TsEvent.Local().Format("15:04:05")),
			eventTypeStyle.Render(e.EventType),
			eventSubjectStyle.Render(subject),
		)
	}
	return sb.String()
}

func renderPeople(people []client.Person) string {
	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("People") + "\n\n")
	if len(people) == 0 {
		sb.WriteString(subtleStyle.Render("Nobody registered yet."))
		return sb.String()
	}
	for _, p := range people {
		line := fmt.Sprintf("%s %d friends", nameStyle.Render(p.Name), len(p.Friends))
		if len(p.Possessions) > 0 {
			line += "  " + itemStyle.Render(strings.Join(p.Possessions, ", "))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func renderPath(msg pathMsg) string {
	switch {
	case errors.Is(msg.err, client.ErrNoPath):
		return subtleStyle.Render(fmt.Sprintf("%s: nobody reachable owns it", msg.query))
	case errors.Is(msg.err, errBadQuery):
		return errorStyle.Render("type a name and an item separated by a space")
	case msg.err != nil:
		return errorStyle.Render(fmt.Sprintf("%s: %v", msg.query, msg.err))
	}
	return okStyle.Render(fmt.Sprintf("%s: %s (%d hops)", msg.query, strings.Join(msg.path.Path, " → "), msg.path.Hops))
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting...", m.spinner.View())
	}

	topPane := paneStyle.Render(renderPeople(m.people))
	header := headerStyle.Render(fmt.Sprintf("%s Activity Stream", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d People • %d Events", len(m.people), len(m.events)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nEnter to search • PgUp/PgDn to scroll • Esc to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, m.input.View(), m.lookup, footer)
}

// Commands

func fetchData(api API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		people, err := api.People(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		events, err := api.Events(ctx, client.EventsOptions{Limit: maxEvents})
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{people: people, events: events}
	}
}

var errBadQuery = errors.New("bad query")

func findPath(api API, query string) tea.Cmd {
	return func() tea.Msg {
		name, item, ok := strings.Cut(query, " ")
		item = strings.TrimSpace(item)
		if !ok || name == "" || item == "" {
			return pathMsg{query: query, err: errBadQuery}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		path, err := api.BorrowPath(ctx, name, item)
		return pathMsg{query: query, path: path, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	endpoint := flag.String("endpoint", os.Getenv("BORROWD_URL"), "borrowd base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(client.NewClient(*endpoint)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
