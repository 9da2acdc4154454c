// Package composer holds the message input state behind the chat bar.
package composer

import (
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	DefaultDebounce         = 300 * time.Millisecond
	DefaultMaxMessageLength = 300
)

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithMaxMessageLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxLen = n
		}
	}
}

func WithCapabilities(caps ...string) Option {
	return func(c *Controller) { c.caps = normalizeCaps(caps) }
}

// Controller turns raw keystrokes into a debounced ComposerState.
// Every new input restarts the timer; only the latest value is validated.
type Controller struct {
	roomID   domain.RoomID
	debounce time.Duration
	maxLen   int
	caps     []string
	logger   zerolog.Logger

	mu     sync.Mutex
	input  string
	timer  *time.Timer
	gen    uint64
	passes int
	closed bool

	state *core.State[domain.ComposerState]
}

func NewController(roomID domain.RoomID, opts ...Option) *Controller {
	c := &Controller{
		roomID:   roomID,
		debounce: DefaultDebounce,
		maxLen:   DefaultMaxMessageLength,
		caps:     []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.With().Str("module", "app.composer").Str("room", string(roomID)).Logger()
	c.state = core.NewState(domain.ComposerState{
		ValidationErrors: []domain.ValidationError{},
		OwnCapabilities:  c.caps,
	})
	return c
}

func (c *Controller) State() *core.State[domain.ComposerState] { return c.state }

func (c *Controller) MaxMessageLength() int { return c.maxLen }

// Input is the raw, not yet debounced, value.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// ValidationPasses counts how many times the input was validated.
func (c *Controller) ValidationPasses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

func (c *Controller) SetMessageInput(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.input = value
	gen := c.restartLocked()
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

// UpdateInputValue runs the pending validation pass now.
func (c *Controller) UpdateInputValue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.restartLocked()
	c.validateLocked()
}

// ClearData empties input and errors at once, dropping any pending pass.
func (c *Controller) ClearData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.input = ""
	c.restartLocked()
	c.state.Update(func(s domain.ComposerState) domain.ComposerState {
		s.InputValue = ""
		s.ValidationErrors = []domain.ValidationError{}
		return s
	})
}

func (c *Controller) SetOwnCapabilities(caps ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.caps = normalizeCaps(caps)
	owned := slices.Clone(c.caps)
	c.state.Update(func(s domain.ComposerState) domain.ComposerState {
		s.OwnCapabilities = owned
		return s
	})
}

// Close stops the live timer; later input is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.restartLocked()
	c.mu.Unlock()
	c.state.Close()
}

// restartLocked invalidates the pending timer and returns the new generation.
func (c *Controller) restartLocked() uint64 {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	return c.gen
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A newer input, a clear or Close happened while the timer was firing.
	if c.closed || gen != c.gen {
		return
	}
	c.timer = nil
	c.validateLocked()
}

func (c *Controller) validateLocked() {
	value := c.input
	errs := Validate(value, c.maxLen)
	c.passes++
	c.state.Update(func(s domain.ComposerState) domain.ComposerState {
		s.InputValue = value
		s.ValidationErrors = errs
		return s
	})
	if len(errs) > 0 {
		c.logger.Debug().Int("length", utf8.RuneCountInString(value)).Int("max", c.maxLen).Msg("input rejected")
	}
}

// Validate checks message against the composer rules.
// Length is counted in runes, so an emoji outside the BMP counts as one.
func Validate(message string, maxLen int) []domain.ValidationError {
	errs := []domain.ValidationError{}
	if n := utf8.RuneCountInString(message); n > maxLen {
		errs = append(errs, domain.MessageLengthExceeded{MessageLength: n, MaxMessageLength: maxLen})
	}
	return errs
}

func normalizeCaps(caps []string) []string {
	out := lo.Uniq(lo.Compact(caps))
	slices.Sort(out)
	return out
}
