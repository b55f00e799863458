package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/search"
	"github.com/matzehuels/contractmap/pkg/view"
)

// Tree styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listPharmacyStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// Messages
// =============================================================================

// viewChangedMsg reports that the selection or the selected node's
// children changed.
type viewChangedMsg struct{}

// alertMsg carries a message the view wants the user to see.
type alertMsg string

// indexReadyMsg reports that the search index finished loading.
type indexReadyMsg struct{}

// selectDoneMsg ends an asynchronous node click.
type selectDoneMsg struct {
	id  string
	err error
}

// searchDoneMsg ends an asynchronous search submission.
type searchDoneMsg struct {
	id  string
	err error
}

// =============================================================================
// Bridge - view callbacks into the program
// =============================================================================

// bridge forwards view callbacks, which run on arbitrary goroutines, to
// the bubbletea loop. Messages are dropped when the buffer is full; the
// next refresh reads the view anyway.
type bridge chan tea.Msg

func newBridge() bridge { return make(bridge, 64) }

func (b bridge) options() []view.Option {
	return []view.Option{
		view.WithDetails(func(*graph.Node, string) { b.send(viewChangedMsg{}) }),
		view.WithAlert(func(msg string) { b.send(alertMsg(msg)) }),
	}
}

func (b bridge) send(msg tea.Msg) {
	select {
	case b <- msg:
	default:
	}
}

func (b bridge) wait() tea.Cmd {
	return func() tea.Msg { return <-b }
}

// =============================================================================
// BrowseModel - Interactive hierarchy browser
// =============================================================================

// searchBox is the state of the "/" prompt.
type searchBox struct {
	active bool
	query  string
	result search.Result
	pick   int
}

// BrowseModel is the bubbletea model driving one view from the keyboard.
type BrowseModel struct {
	ctx     context.Context
	view    *view.Controller
	events  bridge
	snap    view.Snapshot
	cursor  int
	offset  int
	height  int
	pending map[string]bool
	search  searchBox
	alert   string
}

// NewBrowseModel creates a model over an initialized view. events must be
// the bridge whose options the view was created with.
func NewBrowseModel(ctx context.Context, c *view.Controller, events bridge) BrowseModel {
	m := BrowseModel{
		ctx:     ctx,
		view:    c,
		events:  events,
		height:  20,
		pending: make(map[string]bool),
	}
	return m.refresh("")
}

func (m BrowseModel) Init() tea.Cmd {
	ready := m.view.IndexReady()
	return tea.Batch(m.events.wait(), func() tea.Msg {
		<-ready
		return indexReadyMsg{}
	})
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewChangedMsg:
		return m.refresh(""), m.events.wait()
	case alertMsg:
		m.alert = string(msg)
		return m, m.events.wait()
	case indexReadyMsg:
		return m.refresh(""), nil
	case selectDoneMsg:
		delete(m.pending, msg.id)
		m.setError(msg.err)
		return m.refresh(msg.id), nil
	case searchDoneMsg:
		m.setError(msg.err)
		return m.refresh(msg.id), nil
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-12, 5)
		return m.scroll(), nil
	case tea.KeyMsg:
		if m.search.active {
			return m.updateSearch(msg)
		}
		return m.updateTree(msg)
	}
	return m, nil
}

func (m BrowseModel) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		return m.focus(m.cursor - 1), nil
	case "down", "j":
		return m.focus(m.cursor + 1), nil
	case "home", "g":
		return m.focus(0), nil
	case "end", "G":
		return m.focus(len(m.snap.Nodes) - 1), nil
	case "enter", " ":
		if len(m.snap.Nodes) == 0 {
			return m, nil
		}
		id := m.snap.Nodes[m.cursor].ID
		if m.pending[id] {
			return m, nil
		}
		m.pending[id] = true
		m.alert = ""
		ctx, c := m.ctx, m.view
		return m, func() tea.Msg {
			return selectDoneMsg{id: id, err: c.OnNodeSelect(ctx, id)}
		}
	case "/":
		m.search = searchBox{active: true}
		m.alert = ""
	}
	return m, nil
}

func (m BrowseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.search = searchBox{}
		return m, nil
	case tea.KeyUp:
		if m.search.pick > 0 {
			m.search.pick--
		}
		return m, nil
	case tea.KeyDown:
		if m.search.pick < len(m.search.result.Companies)-1 {
			m.search.pick++
		}
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.search.query); len(r) > 0 {
			m.search.query = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.search.query += string(msg.Runes)
	case tea.KeySpace:
		m.search.query += " "
	case tea.KeyEnter:
		var id string
		if cs := m.search.result.Companies; m.search.pick < len(cs) {
			id = cs[m.search.pick].ID
		}
		m.search = searchBox{}
		ctx, c := m.ctx, m.view
		return m, func() tea.Msg {
			return searchDoneMsg{id: id, err: c.OnSearchSubmit(ctx, id)}
		}
	default:
		return m, nil
	}
	m.search.result = m.view.Suggest(m.search.query)
	m.search.pick = 0
	return m, nil
}

// focus moves the cursor to row i and selects its node.
func (m BrowseModel) focus(i int) BrowseModel {
	if len(m.snap.Nodes) == 0 {
		return m
	}
	i = min(max(i, 0), len(m.snap.Nodes)-1)
	id := m.snap.Nodes[i].ID
	if err := m.view.Focus(id); err != nil {
		m.setError(err)
	}
	m.cursor = i
	return m.refresh(id)
}

// refresh re-reads the view and puts the cursor on the selection, or on
// keep when nothing is selected.
func (m BrowseModel) refresh(keep string) BrowseModel {
	m.snap = m.view.Snapshot()
	target := m.snap.Selected
	if target == "" {
		target = keep
	}
	for i, n := range m.snap.Nodes {
		if n.ID == target {
			m.cursor = i
			break
		}
	}
	m.cursor = min(m.cursor, max(len(m.snap.Nodes)-1, 0))
	return m.scroll()
}

func (m BrowseModel) scroll() BrowseModel {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	return m
}

// setError shows err unless the view already raised an alert for it.
func (m *BrowseModel) setError(err error) {
	if err == nil || m.alert != "" {
		return
	}
	m.alert = cerrors.UserMessage(err)
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Contractors of " + m.snap.PharmacyID))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand/collapse  / search  q quit"))
	b.WriteString("\n\n")

	if m.snap.Blocked != "" {
		b.WriteString(StyleWarning.Render(m.snap.Blocked))
		return b.String()
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.treeView(), "  ", m.detailsView()))
	b.WriteString("\n")

	if m.search.active {
		b.WriteString(m.searchView())
	} else if !m.snap.SearchReady {
		b.WriteString(listDimStyle.Render(search.MsgLoading))
	}
	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(m.alert))
	}
	return b.String()
}

func (m BrowseModel) treeView() string {
	var b strings.Builder
	end := min(m.offset+m.height, len(m.snap.Nodes))
	for i := m.offset; i < end; i++ {
		n := m.snap.Nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := cursor + strings.Repeat("  ", n.Depth) + m.marker(n) + " " + n.Name
		if n.ChildrenCount > 0 {
			line += listDimStyle.Render(fmt.Sprintf(" (%d)", n.ChildrenCount))
		}
		switch {
		case i == m.cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case n.IsPharmacy:
			b.WriteString(listPharmacyStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.snap.Nodes))))
	return b.String()
}

// marker shows whether a row can be expanded.
func (m BrowseModel) marker(n view.NodeView) string {
	switch {
	case m.pending[n.ID]:
		return "…"
	case n.Expanded:
		return "▾"
	case n.ChildrenCount > 0 && n.Children != graph.ChildrenEmpty.String():
		return "▸"
	default:
		return "·"
	}
}

func (m BrowseModel) detailsView() string {
	d := m.snap.Details
	if d == nil {
		return ""
	}
	lines := d.Lines()
	lines[0] = StyleTitle.Render(lines[0])
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m BrowseModel) searchView() string {
	var b strings.Builder
	b.WriteString(StyleHighlight.Render("/ ") + m.search.query + "█\n")
	res := m.search.result
	if res.Message != "" {
		b.WriteString(listDimStyle.Render(res.Message))
		return b.String()
	}
	for i, co := range res.Companies {
		line := "  " + search.Label(co)
		if i == m.search.pick {
			line = listSelectedStyle.Render("▸ " + search.Label(co))
		}
		b.WriteString(line + "\n")
	}
	if res.Total > len(res.Companies) {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  … %d more", res.Total-len(res.Companies))))
	}
	return b.String()
}
