// Package checkout drives the three step booking flow: contact details, item
// details with the traveler roster, then payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/pricing"
	"github.com/example/travelbook/internal/roster"
	"github.com/google/uuid"
)

type Step int

const (
	StepContact Step = iota + 1
	StepItemDetails
	StepPayment
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepItemDetails:
		return "item-details"
	case StepPayment:
		return "payment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Valid() bool { return s >= StepContact && s <= StepPayment }

var (
	ErrNotAtPayment  = errors.New("checkout is not at the payment step")
	ErrSessionClosed = errors.New("checkout session closed")
	ErrAlreadyBooked = errors.New("checkout already booked")
)

// Transition describes the outcome of Advance. On failure To is the step the
// session stays at, which differs from From when From was not the current step.
type Transition struct {
	From        Step `json:"from"`
	To          Step `json:"to"`
	ScrollToTop bool `json:"scrollToTop"`
}

// Order is the frozen result of BookNow.
type Order struct {
	ID        string                                    `json:"id"`
	ItemID    string                                    `json:"itemId"`
	ItemTitle string                                    `json:"itemTitle"`
	Kind      catalog.Kind                              `json:"kind"`
	Contact   Contact                                   `json:"contact"`
	Counts    roster.Counts                             `json:"counts"`
	Travelers map[roster.Category][]roster.TravelerForm `json:"travelers"`
	Breakdown pricing.Breakdown                         `json:"breakdown"`
	Display   pricing.Amounts                           `json:"display"`
	PlacedAt  time.Time                                 `json:"placedAt"`
}

// State is a read-only snapshot of a session.
type State struct {
	ID                   string                                    `json:"id"`
	ItemID               string                                    `json:"itemId"`
	Kind                 catalog.Kind                              `json:"kind"`
	Step                 Step                                      `json:"step"`
	Sections             map[Step]bool                             `json:"sections"`
	Contact              Contact                                   `json:"contact"`
	Counts               roster.Counts                             `json:"counts"`
	MaxTravelers         int                                       `json:"maxTravelers"`
	Travelers            map[roster.Category][]roster.TravelerForm `json:"travelers"`
	Breakdown            pricing.Breakdown                         `json:"breakdown"`
	Display              pricing.Amounts                           `json:"display"`
	HoldSecondsRemaining int                                       `json:"holdSecondsRemaining"`
	Booked               bool                                      `json:"booked"`
}

type Option func(*Session)

// WithStrictTravelers requires a first and last name on every traveler form
// before leaving the item details step.
func WithStrictTravelers() Option {
	return func(s *Session) { s.strict = true }
}

func WithHoldSeconds(n int) Option {
	return func(s *Session) { s.holdSeconds = n }
}

// WithHoldOptions passes options through to the session's Hold.
func WithHoldOptions(opts ...HoldOption) Option {
	return func(s *Session) { s.holdOpts = append(s.holdOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithRoster(r *roster.Roster) Option {
	return func(s *Session) { s.roster = r }
}

// Session is one page lifetime of the checkout flow. It is safe for
// concurrent use.
type Session struct {
	id          string
	strict      bool
	holdSeconds int
	holdOpts    []HoldOption
	log         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	hold   *Hold
	done   chan struct{}

	// unix nanos of the last registry lookup
	lastActive atomic.Int64

	mu       sync.Mutex
	item     catalog.Item
	roster   *roster.Roster
	contact  Contact
	step     Step
	sections map[Step]bool
	order    *Order
	closed   bool
}

// NewSession starts a checkout for item at step 1 with the hold counting
// down. The session lives until Close or until parent is done.
func NewSession(parent context.Context, item catalog.Item, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		holdSeconds: DefaultHoldSeconds,
		log:         slog.Default(),
		item:        item,
		step:        StepContact,
		sections:    map[Step]bool{StepContact: true, StepItemDetails: false, StepPayment: false},
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.roster == nil {
		s.roster = roster.New(item.Kind)
	}
	s.log = s.log.With("session_id", s.id)
	s.hold = NewHold(s.holdSeconds, append([]HoldOption{WithHoldLogger(s.log)}, s.holdOpts...)...)
	s.ctx, s.cancel = context.WithCancel(parent)

	go func() {
		defer close(s.done)
		_ = s.hold.Run(s.ctx)
	}()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Context is cancelled when the session is closed. Requests made on behalf of
// the session should use it so teardown aborts them.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Hold() *Hold { return s.hold }

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetContact replaces the contact form. It is validated on Advance.
func (s *Session) SetContact(c Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	s.contact = c
	return nil
}

// SetCount changes a traveler count by delta, clamped to the roster bounds.
func (s *Session) SetCount(cat roster.Category, delta int) (roster.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return s.roster.Counts(), err
	}
	return s.roster.SetCount(cat, delta), nil
}

func (s *Session) UpdateTraveler(cat roster.Category, index int, f roster.TravelerForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	return s.roster.Update(cat, index, f)
}

// ApplyProfile copies a saved profile into a traveler slot.
func (s *Session) ApplyProfile(ctx context.Context, profiles *roster.ProfileStore, cat roster.Category, index int, profileID string) error {
	form, err := profiles.Load(ctx, profileID)
	if err != nil {
		return err
	}
	return s.UpdateTraveler(cat, index, form)
}

// Quote prices the current roster.
func (s *Session) Quote() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.ForItem(s.item, s.roster.Counts())
}

// ItemSource fetches catalog items; *apiclient.Client satisfies it.
type ItemSource interface {
	Item(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error)
}

// Refresh reloads the item so pricing follows the catalog. The fetch is
// aborted when either ctx is done or the session is closed.
func (s *Session) Refresh(ctx context.Context, src ItemSource) error {
	s.mu.Lock()
	kind, id := s.item.Kind, s.item.ID
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	item, err := src.Item(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("refresh %s %s: %w", kind, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	s.item = item
	return nil
}

// Advance tries to move from the current step to the next. Validation
// failures are returned as a field map and leave the session unchanged.
func (s *Session) Advance(from Step) (Transition, ValidationErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stay := Transition{From: from, To: s.step}
	if err := s.writable(); err != nil {
		return stay, ValidationErrors{"step": err.Error()}
	}
	if from != s.step {
		return stay, ValidationErrors{"step": fmt.Sprintf("current step is %d, not %d", s.step, from)}
	}

	switch from {
	case StepContact:
		if errs := s.contact.Validate(); len(errs) > 0 {
			return stay, errs
		}
	case StepItemDetails:
		if errs := s.checkTravelers(); len(errs) > 0 {
			return stay, errs
		}
	default:
		return stay, ValidationErrors{"step": "payment is the last step; book instead"}
	}

	next := from + 1
	s.sections[from] = false
	s.sections[next] = true
	s.step = next
	s.log.Info("checkout advanced", "from", from.String(), "to", next.String())
	return Transition{From: from, To: next, ScrollToTop: from == StepContact}, nil
}

func (s *Session) checkTravelers() ValidationErrors {
	if !s.roster.Complete() {
		return ValidationErrors{"travelers": "a form is required for every traveler"}
	}
	if !s.strict {
		return nil
	}
	missing := s.roster.MissingNames()
	if len(missing) == 0 {
		return nil
	}
	errs := make(ValidationErrors, len(missing))
	for _, k := range missing {
		errs["travelers."+k] = "first and last name are required"
	}
	return errs
}

// ToggleSection opens or collapses the section for step without moving the
// current step. Future steps cannot be opened. It reports the new state.
func (s *Session) ToggleSection(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !step.Valid() || step > s.step {
		return false
	}
	s.sections[step] = !s.sections[step]
	return s.sections[step]
}

// BookNow freezes the session and returns the order. It is only allowed at
// the payment step and only once.
func (s *Session) BookNow() (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return Order{}, err
	}
	if s.step != StepPayment {
		return Order{}, ErrNotAtPayment
	}

	b := pricing.ForItem(s.item, s.roster.Counts())
	o := Order{
		ID:        uuid.NewString(),
		ItemID:    s.item.ID,
		ItemTitle: s.item.Title,
		Kind:      s.item.Kind,
		Contact:   s.contact,
		Counts:    s.roster.Counts(),
		Travelers: s.travelersLocked(),
		Breakdown: b,
		Display:   b.Display(),
		PlacedAt:  time.Now().UTC(),
	}
	s.order = &o
	s.hold.Stop()
	s.log.Info("checkout booked", "order_id", o.ID, "item_id", o.ItemID, "total", o.Display.Total)
	return o, nil
}

// Order returns the booked order, if any.
func (s *Session) Order() (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return Order{}, false
	}
	return *s.order, true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sections := make(map[Step]bool, len(s.sections))
	for k, v := range s.sections {
		sections[k] = v
	}
	b := pricing.ForItem(s.item, s.roster.Counts())
	return State{
		ID:                   s.id,
		ItemID:               s.item.ID,
		Kind:                 s.item.Kind,
		Step:                 s.step,
		Sections:             sections,
		Contact:              s.contact,
		Counts:               s.roster.Counts(),
		MaxTravelers:         s.roster.MaxTravelers(),
		Travelers:            s.travelersLocked(),
		Breakdown:            b,
		Display:              b.Display(),
		HoldSecondsRemaining: s.hold.Remaining(),
		Booked:               s.order != nil,
	}
}

// Close tears the session down: the hold stops and Context is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return
	}
	s.hold.Stop()
	s.cancel()
	<-s.done
}

func (s *Session) writable() error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.order != nil:
		return ErrAlreadyBooked
	}
	return nil
}

func (s *Session) travelersLocked() map[roster.Category][]roster.TravelerForm {
	out := make(map[roster.Category][]roster.TravelerForm, len(roster.Categories))
	for _, c := range roster.Categories {
		out[c] = s.roster.Travelers(c)
	}
	return out
}
