// Package chat provides the conversation view of the TUI: a scrolling
// transcript, the question input, and a sources panel for the latest answer.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// role of a transcript entry.
type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
)

type entry struct {
	role      role
	text      string
	citations []domain.Citation
	grounded  bool
}

// Options configure every query sent from the view.
type Options struct {
	Namespace string
	TopK      int
}

// View is the chat view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	prompt    *input.Prompt
	sources   *list.Citations
	statusbar *status.Bar
	viewport  viewport.Model
	spinner   spinner.Model

	rag  driving.RAGService
	opts Options
	ctx  context.Context

	conversationID string
	transcript     []entry
	turns          int
	pending        bool
	focusSources   bool

	width  int
	height int
	ready  bool
}

// NewView creates a chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, rag driving.RAGService, opts Options) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.AssistantLabel

	v := &View{
		styles:    s,
		keymap:    km,
		prompt:    input.NewPrompt(s),
		sources:   list.NewCitations(s),
		statusbar: status.NewBar(s, km),
		viewport:  viewport.New(80, 16),
		spinner:   sp,
		rag:       rag,
		opts:      opts,
		ctx:       context.Background(),
	}
	v.SetDimensions(80, 24)
	v.ready = false
	return v
}

// WithContext sets the context queries run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.prompt.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QuestionSubmitted:
		return v, v.submit(msg.Question)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ConversationReset:
		v.Reset()
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(errorText(msg.Err))
		return v, nil

	case spinner.TickMsg:
		if !v.pending {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.statusbar.SetSpinner(v.spinner.View())
		return v, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	cmds = append(cmds, cmd)
	v.viewport, cmd = v.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return v, tea.Batch(cmds...)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	if v.focusSources {
		switch {
		case keymap.Matches(keyStr, v.keymap.Back), keymap.Matches(keyStr, v.keymap.Sources):
			v.focusInput()
		default:
			v.sources, _ = v.sources.Update(msg)
		}
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Sources):
		if v.sources.Count() > 0 {
			v.focusSources = true
			v.prompt.Blur()
			v.statusbar.SetState(status.StateSources)
		}
		return v, nil

	case keymap.Matches(keyStr, v.keymap.NewConversation):
		if v.pending {
			return v, nil
		}
		return v, func() tea.Msg { return messages.ConversationReset{} }

	case keymap.Matches(keyStr, v.keymap.PageUp), keymap.Matches(keyStr, v.keymap.PageDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(keyStr, v.keymap.Send):
		question := strings.TrimSpace(v.prompt.Value())
		if question == "" || v.pending {
			return v, nil
		}
		v.prompt.Reset()
		return v, v.submit(question)
	}

	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

// submit records the question and starts the query.
func (v *View) submit(question string) tea.Cmd {
	if v.pending {
		return nil
	}
	v.pending = true
	v.append(entry{role: roleUser, text: question})
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	return tea.Batch(v.ask(question), v.spinner.Tick)
}

// ask runs one query. The conversation ID is captured now so a reset
// while the query runs does not leak into the next conversation.
func (v *View) ask(question string) tea.Cmd {
	rag, ctx := v.rag, v.ctx
	req := driving.QueryRequest{
		Text:           question,
		ConversationID: v.conversationID,
		Namespace:      v.opts.Namespace,
		TopK:           v.opts.TopK,
	}
	return func() tea.Msg {
		if rag == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoRAGService}
		}
		turn, err := rag.Query(ctx, req)
		return messages.AnswerReceived{Question: question, Turn: turn, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = false
	v.statusbar.SetSpinner("")

	if msg.Err != nil {
		text := errorText(msg.Err)
		v.append(entry{role: roleError, text: text})
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(text)
		return
	}
	if msg.Turn == nil {
		return
	}

	v.conversationID = msg.Turn.ConversationID
	v.turns++
	v.append(entry{
		role:      roleAssistant,
		text:      msg.Turn.Answer,
		citations: msg.Turn.Citations,
		grounded:  msg.Turn.GroundedOnContext,
	})
	v.sources.SetTurn(msg.Turn)
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
	v.statusbar.SetTurns(v.turns)
}

func (v *View) append(e entry) {
	v.transcript = append(v.transcript, e)
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) focusInput() {
	v.focusSources = false
	v.prompt.Focus()
	v.statusbar.SetState(status.StateReady)
}

// Reset forgets the conversation and clears the transcript.
func (v *View) Reset() {
	v.conversationID = ""
	v.transcript = nil
	v.turns = 0
	v.pending = false
	v.sources.SetTurn(nil)
	v.focusInput()
	v.prompt.Reset()
	v.statusbar.Clear()
	v.statusbar.SetMessage("New conversation")
	v.viewport.SetContent(v.renderTranscript())
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.viewport.View()}
	if v.focusSources {
		sections = append(sections, v.styles.Border.Width(max(v.width-2, 20)).Render(v.sources.View()))
	}
	sections = append(sections, v.prompt.View(), v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderTranscript() string {
	if len(v.transcript) == 0 {
		return v.styles.Muted.Render("Ask a question about your indexed documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 20))
	blocks := make([]string, 0, len(v.transcript))
	for _, e := range v.transcript {
		var b strings.Builder
		switch e.role {
		case roleUser:
			b.WriteString(v.styles.UserLabel.Render("You"))
		case roleAssistant:
			b.WriteString(v.styles.AssistantLabel.Render("ragline"))
		case roleError:
			b.WriteString(v.styles.Error.Render("Error"))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(e.text))

		if e.role == roleAssistant {
			if len(e.citations) > 0 {
				names := make([]string, 0, len(e.citations))
				for _, c := range e.citations {
					names = append(names, v.styles.CitationLabel.Render(c.Label)+" "+list.SourceName(c))
				}
				b.WriteString("\n")
				b.WriteString(v.styles.Muted.Render("Sources: ") + strings.Join(names, ", "))
			} else if !e.grounded {
				b.WriteString("\n")
				b.WriteString(v.styles.Warning.Render("(not grounded in your documents)"))
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.prompt.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.sources.SetDimensions(width-4, 8)

	// Header line, prompt (3 lines with border) and status bar.
	v.viewport.Width = width
	v.viewport.Height = max(height-6, 3)
	v.viewport.SetContent(v.renderTranscript())
}

// Ready returns whether the view has received its size.
func (v *View) Ready() bool {
	return v.ready
}

// ConversationID returns the ID of the current conversation, empty before
// the first answer.
func (v *View) ConversationID() string {
	return v.conversationID
}

// Pending returns whether a query is in flight.
func (v *View) Pending() bool {
	return v.pending
}

// Turns returns the number of answered questions.
func (v *View) Turns() int {
	return v.turns
}

// SourcesFocused returns whether the sources panel has focus.
func (v *View) SourcesFocused() bool {
	return v.focusSources
}

// Input returns the current input value.
func (v *View) Input() string {
	return v.prompt.Value()
}

// SetInput sets the input value.
func (v *View) SetInput(s string) {
	v.prompt.SetValue(s)
}

// Transcript returns the transcript as plain text, one entry per line.
func (v *View) Transcript() []string {
	lines := make([]string, 0, len(v.transcript))
	for _, e := range v.transcript {
		lines = append(lines, e.text)
	}
	return lines
}
