package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/example/travelbook/internal/kv"
	"github.com/google/uuid"
)

// ProfilesKey is the single store key holding every saved profile.
const ProfilesKey = "savedTravelers"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrBlankProfile    = errors.New("profile has no details")
)

// Profile is a saved traveler, reusable across bookings. Names may repeat.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	TravelerForm
}

// Sealer protects the stored profile list at rest.
type Sealer interface {
	Seal(plaintext []byte, label string) ([]byte, error)
	Open(sealed []byte, label string) ([]byte, error)
}

// ProfileStore keeps profiles as one JSON array under ProfilesKey, in save order.
type ProfileStore struct {
	store  kv.Store
	sealer Sealer
	newID  func() string

	mu sync.Mutex
}

type ProfileOption func(*ProfileStore)

// WithSealer encrypts the stored array.
func WithSealer(s Sealer) ProfileOption {
	return func(p *ProfileStore) { p.sealer = s }
}

func NewProfileStore(store kv.Store, opts ...ProfileOption) *ProfileStore {
	p := &ProfileStore{store: store, newID: uuid.NewString}
	for _, o := range opts {
		o(p)
	}
	return p
}

// List returns every saved profile.
func (p *ProfileStore) List(ctx context.Context) ([]Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(ctx)
}

// Save appends form as a new profile labelled with its full name.
func (p *ProfileStore) Save(ctx context.Context, form TravelerForm) (Profile, error) {
	if form.Blank() {
		return Profile{}, ErrBlankProfile
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.read(ctx)
	if err != nil {
		return Profile{}, err
	}
	prof := Profile{ID: p.newID(), Name: form.FullName(), TravelerForm: form}
	if err := p.write(ctx, append(all, prof)); err != nil {
		return Profile{}, err
	}
	return prof, nil
}

// Load returns the traveler fields of profile id, without its id or label.
func (p *ProfileStore) Load(ctx context.Context, id string) (TravelerForm, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.read(ctx)
	if err != nil {
		return TravelerForm{}, err
	}
	for _, prof := range all {
		if prof.ID == id {
			return prof.TravelerForm, nil
		}
	}
	return TravelerForm{}, ErrProfileNotFound
}

// Delete removes profile id.
func (p *ProfileStore) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.read(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	found := false
	for _, prof := range all {
		if prof.ID == id {
			found = true
			continue
		}
		kept = append(kept, prof)
	}
	if !found {
		return ErrProfileNotFound
	}
	return p.write(ctx, kept)
}

func (p *ProfileStore) read(ctx context.Context) ([]Profile, error) {
	raw, err := p.store.Get(ctx, ProfilesKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if p.sealer != nil {
		if raw, err = p.sealer.Open(raw, ProfilesKey); err != nil {
			return nil, fmt.Errorf("open profiles: %w", err)
		}
	}
	var out []Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return out, nil
}

func (p *ProfileStore) write(ctx context.Context, all []Profile) error {
	if all == nil {
		all = []Profile{}
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	if p.sealer != nil {
		if raw, err = p.sealer.Seal(raw, ProfilesKey); err != nil {
			return fmt.Errorf("seal profiles: %w", err)
		}
	}
	if err := p.store.Set(ctx, ProfilesKey, raw); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}
