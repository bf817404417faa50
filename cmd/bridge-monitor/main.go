// Terminal monitor for the ADS-B to APRS bridge.
//
// Polls the daemon's status API and renders the tracked aircraft table
// with connection health, packet counters and queue depth.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/einsteine77/ADSBtoAPRS/pkg/tracker"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	landedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// bridgeStatus mirrors the daemon's GET /api/status payload.
type bridgeStatus struct {
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Tracked        int    `json:"tracked"`
	SBSConnected   bool   `json:"sbs_connected"`
	APRSConnected  bool   `json:"aprs_connected"`
	MetadataOK     bool   `json:"metadata_ok"`
	PacketsSent    uint64 `json:"packets_sent"`
	PacketsDropped uint64 `json:"packets_dropped"`
	QueueDepth     int    `json:"queue_depth"`
}

type model struct {
	baseURL  string
	client   *http.Client
	status   bridgeStatus
	aircraft []tracker.Info
	err      error
	sortBy   string // "distance" or "name"
}

type tickMsg time.Time

type pollResult struct {
	status   bridgeStatus
	aircraft []tracker.Info
	err      error
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) poll() tea.Cmd {
	return func() tea.Msg {
		var res pollResult
		res.err = m.getJSON("/api/status", &res.status)
		if res.err == nil {
			res.err = m.getJSON("/api/aircraft", &res.aircraft)
		}
		return res
	}
}

func (m model) getJSON(path string, v any) error {
	resp, err := m.client.Get(m.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.sortBy == "distance" {
				m.sortBy = "name"
			} else {
				m.sortBy = "distance"
			}
		}

	case tickMsg:
		return m, tea.Batch(m.poll(), tick())

	case pollResult:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.aircraft = msg.aircraft
		}
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ADS-B -> APRS Bridge Monitor"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(failStyle.Render(fmt.Sprintf("Bridge unreachable: %v", m.err)))
		b.WriteString("\n\n" + dimStyle.Render("q: quit"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s  %s  %s  up %s\n",
		connBadge("SBS", m.status.SBSConnected),
		connBadge("APRS", m.status.APRSConnected),
		connBadge("JSON", m.status.MetadataOK),
		(time.Duration(m.status.UptimeSeconds) * time.Second).String(),
	))
	b.WriteString(fmt.Sprintf("tracked %d | sent %d | dropped %d | queue %d\n\n",
		m.status.Tracked, m.status.PacketsSent, m.status.PacketsDropped, m.status.QueueDepth))

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s %-7s %-6s %8s %7s %5s %7s %7s",
		"NAME", "ICAO", "SYM", "ALT", "GS", "TRK", "DIST", "AGE")))
	b.WriteString("\n")

	aircraft := make([]tracker.Info, len(m.aircraft))
	copy(aircraft, m.aircraft)
	if m.sortBy == "name" {
		sort.Slice(aircraft, func(i, j int) bool { return aircraft[i].Name < aircraft[j].Name })
	}

	for _, ac := range aircraft {
		line := fmt.Sprintf("%-9s %-7s %-6s %7.0fft %5.0fkt %4.0f° %5.1fmi %6.0fs",
			ac.Name, ac.ICAO, ac.Symbol, ac.Altitude, ac.GroundSpeed, ac.Track,
			ac.DistanceMi, time.Since(ac.LastUpdate).Seconds())
		if ac.Landed {
			line = landedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(aircraft) == 0 {
		b.WriteString(dimStyle.Render("no aircraft tracked") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("s: sort | q: quit"))
	return b.String()
}

func connBadge(name string, up bool) string {
	if up {
		return okStyle.Render(name + " OK")
	}
	return failStyle.Render(name + " DOWN")
}

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8042", "Bridge status API base URL")
	flag.Parse()

	m := model{
		baseURL: strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Second},
		sortBy:  "distance",
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
