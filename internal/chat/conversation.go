package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/resume"
)

const (
	Greeting        = "Hello! How can I help you today?"
	FallbackMessage = "Sorry, I couldn't process your message. Please try again."

	defaultMaxLogLength = 200
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Assistant is the backend workflow answering chat messages and résumé uploads.
type Assistant interface {
	Chat(ctx context.Context, message string) (string, error)
	AnalyzeResume(ctx context.Context, doc *resume.Document) (string, error)
}

type Message struct {
	Sender Sender
	Text   string
	At     time.Time
}

type Deps struct {
	Assistant Assistant
	Logger    *zap.Logger
	Now       func() time.Time
}

// Conversation is the transcript with the assistant. It starts with the greeting.
type Conversation struct {
	assistant Assistant
	logger    *zap.Logger
	now       func() time.Time
	maxLogLen int

	mu       sync.Mutex
	messages []Message
}

func New(deps *Deps) *Conversation {
	c := &Conversation{
		assistant: deps.Assistant,
		logger:    deps.Logger,
		now:       deps.Now,
		maxLogLen: defaultMaxLogLength,
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.append(SenderBot, Greeting)
	return c
}

// Send posts text to the assistant and returns its reply. Blank input is
// ignored. When the assistant fails the fallback message is appended and the
// error is returned.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	c.append(SenderUser, text)

	c.logger.Debug("sending chat message",
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.String("preview", logger.TruncateForLog(text, c.maxLogLen)),
	)

	reply, err := c.assistant.Chat(ctx, text)
	if err != nil {
		c.append(SenderBot, FallbackMessage)
		c.logger.Warn("chat request failed", zap.Error(err))
		return FallbackMessage, err
	}

	c.append(SenderBot, reply)
	return reply, nil
}

// AnalyzeResume uploads a single résumé and appends the assistant's verdict.
func (c *Conversation) AnalyzeResume(ctx context.Context, doc *resume.Document) (string, error) {
	if err := resume.Validate(doc); err != nil {
		return "", err
	}

	c.append(SenderUser, fmt.Sprintf("Uploaded %s", doc.Name))

	reply, err := c.assistant.AnalyzeResume(ctx, doc)
	if err != nil {
		c.append(SenderBot, FallbackMessage)
		c.logger.Warn("resume analysis failed", zap.String("file", doc.Name), zap.Error(err))
		return FallbackMessage, err
	}

	c.logger.Info("resume analyzed",
		zap.String("file", doc.Name),
		zap.String("reply_preview", logger.TruncateForLog(reply, c.maxLogLen)),
	)

	c.append(SenderBot, reply)
	return reply, nil
}

// Messages returns a copy of the transcript, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Message(nil), c.messages...)
}

func (c *Conversation) append(sender Sender, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{Sender: sender, Text: text, At: c.now()})
}
