// Package list provides the sources panel of the chat TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Citations lists the sources of the latest answer with a preview of the
// retrieved chunk text behind each one.
type Citations struct {
	citations []domain.Citation
	previews  map[string]string // chunk ID to content
	selected  int
	styles    *styles.Styles
	width     int
	height    int
}

// NewCitations creates an empty sources panel.
func NewCitations(s *styles.Styles) *Citations {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Citations{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update moves the selection on arrow keys.
func (c *Citations) Update(msg tea.Msg) (*Citations, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			c.MoveUp()
		case tea.KeyDown:
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the panel.
func (c *Citations) View() string {
	if len(c.citations) == 0 {
		return c.styles.Muted.Render("No sources for this answer")
	}

	lines := make([]string, 0, len(c.citations)*2+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(c.citations))), "")

	for i, cit := range c.citations {
		indicator := "  "
		if i == c.selected {
			indicator = "> "
		}
		line := fmt.Sprintf("%s%s %s  %.2f", indicator, cit.Label, truncate(SourceName(cit), c.width-16), cit.Score)
		if i == c.selected {
			lines = append(lines, c.styles.Selected.Render(line))
			if preview := c.previews[cit.ChunkID]; preview != "" {
				lines = append(lines, c.styles.Muted.Render("    "+truncate(flatten(preview), c.width-6)))
			}
			continue
		}
		lines = append(lines, c.styles.Normal.Render(line))
	}
	return strings.Join(lines, "\n")
}

// SetTurn shows the citations of turn.
func (c *Citations) SetTurn(turn *domain.ConversationTurn) {
	c.selected = 0
	c.citations = nil
	c.previews = make(map[string]string)
	if turn == nil {
		return
	}
	c.citations = turn.Citations
	for _, r := range turn.Retrieved {
		c.previews[r.Chunk.ID] = r.Chunk.Content
	}
}

// Citations returns the displayed citations.
func (c *Citations) Citations() []domain.Citation {
	return c.citations
}

// Selected returns the index of the selected citation.
func (c *Citations) Selected() int {
	return c.selected
}

// SelectedCitation returns the selected citation, or nil if there is none.
func (c *Citations) SelectedCitation() *domain.Citation {
	if c.selected < 0 || c.selected >= len(c.citations) {
		return nil
	}
	return &c.citations[c.selected]
}

// MoveUp moves selection up.
func (c *Citations) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *Citations) MoveDown() {
	if c.selected < len(c.citations)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *Citations) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of citations.
func (c *Citations) Count() int {
	return len(c.citations)
}

// SourceName names a citation for display: its source, else its document,
// with the page when known.
func SourceName(c domain.Citation) string {
	name := c.Source
	if name == "" {
		name = c.DocumentID
	}
	if c.Page > 0 {
		return fmt.Sprintf("%s, page %d", name, c.Page)
	}
	return name
}

func truncate(s string, n int) string {
	n = max(n, 10)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
