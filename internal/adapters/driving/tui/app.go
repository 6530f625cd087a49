package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Options configure the chat session.
type Options = chat.Options

// App is the TUI application following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	chatView    *chat.View
	currentView messages.ViewType

	stats    *domain.IndexStats
	statsErr error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI application.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		help:        h,
		chatView:    chat.NewView(s, km, ports.RAG, opts),
		currentView: messages.ViewChat,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	if ctx == nil {
		return a
	}
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// Init sets the window title, loads index statistics and starts the input.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("ragline"),
		a.loadStats(),
		a.chatView.Init(),
	)
}

func (a *App) loadStats() tea.Cmd {
	rag, ctx := a.ports.RAG, a.ctx
	return func() tea.Msg {
		stats, err := rag.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

// Update handles messages and routes them to the active view.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.ready = true
		a.help.Width = msg.Width
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		keyStr := msg.String()
		if keymap.Matches(keyStr, a.keymap.Quit) {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if keymap.Matches(keyStr, a.keymap.Back) || keymap.Matches(keyStr, a.keymap.Help) {
				a.currentView = messages.ViewChat
			}
			return a, nil
		}
		if keymap.Matches(keyStr, a.keymap.Help) {
			a.currentView = messages.ViewHelp
			return a, nil
		}

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.StatsLoaded:
		a.stats, a.statsErr = msg.Stats, msg.Err
		return a, nil
	}

	var cmd tea.Cmd
	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

// View renders the active view under the header.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	body := a.chatView.View()
	if a.currentView == messages.ViewHelp {
		body = a.viewHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.header(), body)
}

func (a *App) header() string {
	title := a.styles.Title.Render("ragline")
	switch {
	case a.statsErr != nil:
		return title + "  " + a.styles.Warning.Render("vector store unavailable")
	case a.stats != nil:
		return title + "  " + a.styles.Muted.Render(
			fmt.Sprintf("%d vectors in %s", a.stats.TotalVectors, a.stats.IndexName))
	}
	return title
}

func (a *App) viewHelp() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		a.styles.Subtitle.Render("Keys"),
		"",
		a.help.View(a.keymap),
		"",
		a.styles.Muted.Render("Answers cite their sources as [1], [2], ...; press tab to inspect them."),
		a.styles.Help.Render("[esc] back to chat"),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Stats returns the last loaded index statistics.
func (a *App) Stats() *domain.IndexStats {
	return a.stats
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// Ready returns whether the app has received its size.
func (a *App) Ready() bool {
	return a.ready
}
