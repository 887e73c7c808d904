// ABOUTME: Responder collaborator contract and the simulated implementation
// ABOUTME: Maps input text to reply text after a configurable delay, persona-driven

package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

// Responder produces reply text for a given input. ProcessMessage never
// fails for valid non-empty text under the simulated implementation; other
// implementations communicate failure through the returned error.
type Responder interface {
	ProcessMessage(ctx context.Context, text string) (string, error)

	// Busy reports whether a ProcessMessage call is in flight.
	Busy() bool
}

// Rule maps a case-insensitive substring of the input to a canned reply.
type Rule struct {
	Match string `toml:"match"`
	Reply string `toml:"reply"`
}

// persona is the TOML document shape for reply rule files.
type persona struct {
	Rules []Rule `toml:"rule"`
}

// defaultRules are consulted when no persona file is configured or the
// configured rules don't match.
var defaultRules = []Rule{
	{Match: "hello", Reply: "Hello! What would you like to talk about?"},
	{Match: "help", Reply: "I can chat about whatever is on your mind. Just type a message."},
	{Match: "thanks", Reply: "You're welcome!"},
	{Match: "bye", Reply: "Goodbye! Your conversation is saved if you want to pick it up later."},
}

var fallbackReplies = []string{
	"That's an interesting point. Tell me more about %q.",
	"I see what you mean by %q. What led you to that?",
	"Let's dig into %q a little further. What's the context?",
	"Good question. Thinking about %q, a few angles come to mind.",
}

// Simulated is the built-in Responder: it waits a fixed delay, then answers
// from its persona rules, falling back to a deterministic reply derived from
// the input.
type Simulated struct {
	delay  time.Duration
	rules  []Rule
	logger *slog.Logger
	busy   atomic.Int32
}

// NewSimulated creates a simulated responder with the given reply delay.
func NewSimulated(delay time.Duration, logger *slog.Logger) *Simulated {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulated{
		delay:  delay,
		rules:  defaultRules,
		logger: logger.With("component", "responder"),
	}
}

// LoadPersona replaces the default rules with rules from a TOML file.
// Persona rules are matched before the built-in defaults.
func (s *Simulated) LoadPersona(path string) error {
	var p persona
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return fmt.Errorf("loading persona %s: %w", path, err)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("persona %s contains no rules", path)
	}
	s.rules = append(p.Rules, defaultRules...)
	s.logger.Info("persona loaded", "path", path, "rules", len(p.Rules))
	return nil
}

// Busy reports whether a ProcessMessage call is in flight.
func (s *Simulated) Busy() bool {
	return s.busy.Load() > 0
}

// ProcessMessage waits the configured delay and returns a reply. Once
// issued, a call always runs to completion; it is not cancellable.
func (s *Simulated) ProcessMessage(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty message text")
	}

	s.busy.Add(1)
	defer s.busy.Add(-1)

	time.Sleep(s.delay)
	return s.replyFor(text), nil
}

func (s *Simulated) replyFor(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range s.rules {
		if rule.Match != "" && strings.Contains(lower, strings.ToLower(rule.Match)) {
			return rule.Reply
		}
	}

	// Deterministic fallback: same input, same reply
	tmpl := fallbackReplies[len(text)%len(fallbackReplies)]
	return fmt.Sprintf(tmpl, snippet(text))
}

// snippet returns a short quotable fragment of the input.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return text
}
