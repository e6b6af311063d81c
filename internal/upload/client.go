package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/rs/zerolog/log"
)

// ErrSuperseded is returned for a submission that was replaced by a newer one
// or by a reset before its response arrived. Its result is discarded.
var ErrSuperseded = errors.New("submission superseded")

type Analyzer interface {
	Analyze(ctx context.Context, doc *analysis.Document) (analysis.Result, error)
}

// Client holds the state of document submissions to the analysis service.
// Only the latest submission is tracked: starting a new one cancels the pending one.
type Client struct {
	analyzer Analyzer
	timeout  time.Duration

	// notifyMu serializes transitions with their listener calls, mu guards the fields below.
	notifyMu     sync.Mutex
	mu           sync.Mutex
	state        State
	cancel       context.CancelFunc
	listeners    map[int]func(State)
	nextListener int

	wg sync.WaitGroup
}

// NewClient creates a client in idle state. A timeout <= 0 disables the per submission timeout.
func NewClient(analyzer Analyzer, timeout time.Duration) *Client {
	return &Client{
		analyzer:  analyzer,
		timeout:   timeout,
		state:     idle(),
		listeners: make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

// Subscribe registers fn for every state transition. fn must not submit synchronously.
func (c *Client) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.listeners, id)
	}
}

// Submit uploads doc and waits for the result. A nil doc is a no-op.
func (c *Client) Submit(ctx context.Context, doc *analysis.Document) error {
	if doc == nil {
		log.Debug().Msg("no document selected, skip submission")

		return nil
	}

	s := c.begin(ctx, doc)

	return c.await(s, doc)
}

// SubmitAsync starts the upload in the background and returns the request id
// once the loading state is visible. A nil doc is a no-op and returns an empty id.
func (c *Client) SubmitAsync(ctx context.Context, doc *analysis.Document) string {
	if doc == nil {
		log.Debug().Msg("no document selected, skip submission")

		return ""
	}

	s := c.begin(ctx, doc)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := c.await(s, doc); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Warn().Err(err).Str("requestId", s.id).Msg("submission failed")
		}
	}()

	return s.id
}

// Reset cancels a pending submission and returns to the idle state.
func (c *Client) Reset() {
	c.transition(func(_ State) (State, bool) {
		c.cancelPendingLocked()

		return idle(), true
	})
}

// Wait blocks until all background submissions are finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close cancels a pending submission and waits for background submissions.
func (c *Client) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.Wait()
}

type submission struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *Client) begin(ctx context.Context, doc *analysis.Document) submission {
	s := submission{id: uuid.NewString()}
	if c.timeout > 0 {
		s.ctx, s.cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}

	c.transition(func(cur State) (State, bool) {
		c.cancelPendingLocked()
		c.cancel = s.cancel

		// collections are kept until the response replaces them
		return State{
			Status:     Loading,
			RequestID:  s.id,
			Document:   doc.Name,
			Questions:  cur.Questions,
			Flashcards: cur.Flashcards,
		}, true
	})

	return s
}

func (c *Client) await(s submission, doc *analysis.Document) (err error) {
	defer s.cancel()

	resolved := false
	defer func() {
		if resolved {
			return
		}
		// leave the loading state even if the analyzer panics
		r := recover()
		c.resolve(s.id, analysis.Result{}, fmt.Errorf("analysis of %s aborted: %v", doc.Name, r))
		if r != nil {
			panic(r)
		}
	}()

	result, err := c.analyzer.Analyze(s.ctx, doc)
	resolved = true

	return c.resolve(s.id, result, err)
}

func (c *Client) resolve(id string, result analysis.Result, err error) error {
	current := true
	c.transition(func(cur State) (State, bool) {
		if cur.RequestID != id || cur.Status != Loading {
			current = false

			return cur, false
		}
		c.cancel = nil

		if err != nil {
			return State{
				Status:     Failed,
				RequestID:  id,
				Document:   cur.Document,
				Questions:  []string{},
				Flashcards: []analysis.Flashcard{},
				Err:        err,
			}, true
		}

		questions := result.Questions
		if questions == nil {
			questions = []string{}
		}
		flashcards := result.Flashcards
		if flashcards == nil {
			flashcards = []analysis.Flashcard{}
		}

		return State{
			Status:     Loaded,
			RequestID:  id,
			Document:   cur.Document,
			Questions:  questions,
			Flashcards: flashcards,
		}, true
	})

	if !current {
		log.Debug().Str("requestId", id).Msg("discard result of superseded submission")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSuperseded, err)
		}

		return ErrSuperseded
	}

	return err
}

func (c *Client) cancelPendingLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// transition applies fn under lock and notifies listeners if fn reports a change.
func (c *Client) transition(fn func(cur State) (State, bool)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	next, changed := fn(c.state)
	if !changed {
		c.mu.Unlock()

		return
	}
	c.state = next
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	log.Debug().Str("requestId", next.RequestID).Str("status", next.Status.String()).
		Str("document", next.Document).Msg("upload state changed")

	for _, l := range listeners {
		l(next.clone())
	}
}
