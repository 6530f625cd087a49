package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/retry"
	"github.com/custodia-labs/ragline/internal/logger"
)

// AnswerOptions carries per-request inputs to Composer.Answer.
type AnswerOptions struct {
	// History is prior conversation, oldest first.
	History []domain.HistoryMessage

	// Filter restricts retrieval.
	Filter *driven.VectorFilter

	// TopK overrides the configured retrieval_top_k when positive.
	TopK int
}

// Composer answers questions from retrieved context.
type Composer struct {
	retriever *Retriever
	llm       driven.LLMService
	prompts   driven.PromptStore
	settings  domain.RAGSettings
	policy    retry.Policy
	chatOpts  driven.ChatOptions
	now       func() time.Time
}

// NewComposer creates a composer. prompts may be nil.
func NewComposer(
	retriever *Retriever,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.RAGSettings,
	chatOpts driven.ChatOptions,
) *Composer {
	return &Composer{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		settings:  settings,
		policy:    retry.FromSettings(settings),
		chatOpts:  chatOpts,
		now:       time.Now,
	}
}

// Answer retrieves context for query and generates a grounded answer.
// The whole call, retrieval included, is bounded by generation_timeout.
// Generation failures are reported, never papered over with a made-up answer.
func (c *Composer) Answer(ctx context.Context, query string, opts AnswerOptions) (*domain.ConversationTurn, error) {
	if c.settings.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.GenerationTimeout)
		defer cancel()
	}

	topK := c.settings.RetrievalTopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}

	results, err := c.retriever.Retrieve(ctx, query, topK, c.settings.RetrievalMinScore, opts.Filter)
	if err != nil {
		return nil, err
	}

	turn := &domain.ConversationTurn{
		Query:     strings.TrimSpace(query),
		Retrieved: []domain.RetrievalResult{},
		Citations: []domain.Citation{},
	}

	logger.Section("Compose")
	assembled := BuildContext(results, c.settings.MaxContextChars)
	if len(assembled.Results) == 0 {
		logger.Debug("No context retrieved, policy %s", c.settings.EmptyRetrievalPolicy)
		if c.settings.EmptyRetrievalPolicy != domain.PolicyAnswerWithoutContext {
			turn.Answer = c.noInfoMessage()
			turn.Timestamp = c.now()
			return turn, nil
		}
	} else {
		turn.Retrieved = assembled.Results
		turn.Citations = assembled.Citations
		turn.GroundedOnContext = true
		logger.Debug("Context: %d of %d chunks, %d chars", len(assembled.Results), len(results), assembled.Len())
	}

	messages := c.buildMessages(turn.Query, opts.History, assembled)
	answer, err := retry.Do(ctx, c.policy, "generate", func(ctx context.Context) (string, error) {
		return c.llm.Chat(ctx, messages, c.chatOpts)
	})
	if err != nil {
		return nil, generationError(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, domain.NewServiceError(domain.ErrGenerationService, "generate", false,
			errors.New("model returned an empty answer"))
	}

	turn.Answer = answer
	turn.Timestamp = c.now()
	return turn, nil
}

func (c *Composer) noInfoMessage() string {
	if c.settings.NoInfoMessage != "" {
		return c.settings.NoInfoMessage
	}
	return domain.DefaultNoInfoMessage
}

func (c *Composer) prompt(name string) string {
	if c.prompts != nil {
		if p, err := c.prompts.Load(name); err == nil && p != "" {
			return p
		}
	}
	return driven.DefaultPrompts[name]
}

// buildMessages lays out system prompt, recent history, then the question
// with its context.
func (c *Composer) buildMessages(query string, history []domain.HistoryMessage, ctxt Context) []driven.ChatMessage {
	if limit := c.settings.HistoryTurns * 2; limit >= 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: domain.RoleSystem, Content: c.prompt(driven.PromptRAGSystem)})
	for _, h := range history {
		if h.Role != domain.RoleUser && h.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, driven.ChatMessage{Role: h.Role, Content: h.Content})
	}

	var user strings.Builder
	if ctxt.Text == "" {
		user.WriteString(c.prompt(driven.PromptNoContext))
	} else {
		user.WriteString("Context:\n")
		user.WriteString(ctxt.Text)
	}
	user.WriteString("\n\nQuestion: ")
	user.WriteString(query)
	messages = append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: user.String()})

	return messages
}

func generationError(err error) error {
	if errors.Is(err, domain.ErrGenerationService) {
		return err
	}
	return domain.NewServiceError(domain.ErrGenerationService, "generate", retry.IsRetryable(err), err)
}

// Context is the assembled grounding text and what went into it.
type Context struct {
	// Text is the labelled blocks joined by blank lines.
	Text string

	// Results are the retrieval results that fit, in rank order.
	Results []domain.RetrievalResult

	// Citations has one entry per result, labelled [1], [2], ...
	Citations []domain.Citation
}

// Len returns the context length in runes.
func (c Context) Len() int {
	return len([]rune(c.Text))
}

const blockSeparator = "\n\n"

// BuildContext concatenates results in rank order, each under a header
// naming its source document and sequence index, within maxChars runes.
// Lower-ranked blocks are dropped first. If even the top block does not
// fit, its text is cut to the remaining budget, and when the full header
// alone is too long the block keeps only its label.
func BuildContext(results []domain.RetrievalResult, maxChars int) Context {
	var (
		out  Context
		b    strings.Builder
		used int
	)
	sepLen := len([]rune(blockSeparator))

	for i, r := range results {
		label := "[" + strconv.Itoa(i+1) + "]"
		header := blockHeader(label, r.Chunk)
		body := r.Chunk.Content
		size := len([]rune(header)) + len([]rune(body))
		if i > 0 {
			size += sepLen
		}

		if maxChars > 0 && used+size > maxChars {
			if i > 0 {
				break
			}
			if len([]rune(header)) >= maxChars {
				header = label + "\n"
			}
			room := maxChars - len([]rune(header))
			if room <= 0 {
				break
			}
			body = string([]rune(body)[:min(room, len([]rune(body)))])
			size = len([]rune(header)) + len([]rune(body))
		}

		if i > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(header)
		b.WriteString(body)
		used += size

		out.Results = append(out.Results, r)
		out.Citations = append(out.Citations, citationFor(label, r))
	}

	out.Text = b.String()
	return out
}

func blockHeader(label string, c domain.Chunk) string {
	var h strings.Builder
	h.WriteString(label)
	h.WriteString(" Source: ")
	h.WriteString(c.SourceLabel())
	fmt.Fprintf(&h, " | Document: %s | Chunk: %d", c.DocumentID, c.SequenceIndex)
	if p := c.Page(); p > 0 {
		fmt.Fprintf(&h, " | Page: %d", p)
	}
	h.WriteString("\n")
	return h.String()
}

func citationFor(label string, r domain.RetrievalResult) domain.Citation {
	return domain.Citation{
		Label:         label,
		ChunkID:       r.Chunk.ID,
		DocumentID:    r.Chunk.DocumentID,
		SequenceIndex: r.Chunk.SequenceIndex,
		Source:        r.Chunk.SourceLabel(),
		Page:          r.Chunk.Page(),
		Score:         r.Score,
	}
}
