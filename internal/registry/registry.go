package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"spinwheel/internal/models"
	"spinwheel/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/logger"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmpty    = errors.New("prize list is empty")
	ErrBadSlot  = errors.New("edit targets a slot that does not exist")
	ErrDupSlot  = errors.New("slot edited more than once")
	ErrNotImage = errors.New("upload is not an image")
	ErrDupID    = errors.New("prize id used more than once")
)

// ChangeFunc is called after a new prize snapshot has been persisted.
type ChangeFunc func(ctx context.Context, prizes []models.Prize)

// Registry holds the ordered prize list shown on the wheel.
type Registry struct {
	// editMu serializes ApplyEdits and Reset from the read through the hooks.
	editMu   sync.Mutex
	mu       sync.RWMutex
	store    storage.Store
	seed     []models.Prize
	prizes   []models.Prize
	onChange []ChangeFunc
}

// New loads the prize snapshot from store. When nothing is stored the seed
// prizes are used; a nil seed means models.DefaultPrizes.
func New(ctx context.Context, store storage.Store, seed []models.Prize) (*Registry, error) {
	if seed == nil {
		seed = models.DefaultPrizes()
	}
	if len(seed) == 0 {
		return nil, ErrEmpty
	}
	if err := checkIDs(seed); err != nil {
		return nil, fmt.Errorf("seed prizes: %w", err)
	}

	r := &Registry{store: store, seed: clonePrizes(seed)}

	var stored []models.Prize
	ok, err := storage.LoadJSON(ctx, store, storage.PrizesKey, &stored)
	if err != nil {
		return nil, fmt.Errorf("load prizes: %w", err)
	}
	switch {
	case !ok:
		r.prizes = clonePrizes(seed)
	case len(stored) == 0:
		logger.Warningf("Stored prize snapshot is empty, falling back to seed prizes")
		r.prizes = clonePrizes(seed)
	default:
		if err := checkIDs(stored); err != nil {
			return nil, fmt.Errorf("stored prizes: %w", err)
		}
		r.prizes = stored
	}
	return r, nil
}

// seedFile is the layout of a YAML prize seed file.
type seedFile struct {
	Prizes []models.Prize `yaml:"prizes"`
}

// LoadSeedFile reads seed prizes from a YAML file.
func LoadSeedFile(path string) ([]models.Prize, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Prizes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	if err := checkIDs(f.Prizes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Prizes, nil
}

// checkIDs reports ErrDupID when two prizes share an id. Icons are keyed by id.
func checkIDs(prizes []models.Prize) error {
	seen := make(map[int]bool, len(prizes))
	for _, p := range prizes {
		if seen[p.ID] {
			return fmt.Errorf("id %d: %w", p.ID, ErrDupID)
		}
		seen[p.ID] = true
	}
	return nil
}

// OnChange registers fn to run after every successful save.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Prizes returns a copy of the prize list in wheel order.
func (r *Registry) Prizes() []models.Prize {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clonePrizes(r.prizes)
}

// Len returns the number of segments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prizes)
}

// Prize returns the prize at slot i.
func (r *Registry) Prize(i int) (models.Prize, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.prizes) {
		return models.Prize{}, false
	}
	return r.prizes[i], true
}

// ApplyEdits renames prizes and swaps images. Names are always replaced;
// images only when new bytes are given. All uploads are encoded before the
// snapshot is written, then the change hooks run.
func (r *Registry) ApplyEdits(ctx context.Context, edits []models.PrizeEdit) error {
	r.editMu.Lock()
	defer r.editMu.Unlock()

	updated := r.Prizes()

	seen := make(map[int]bool, len(edits))
	for _, e := range edits {
		if e.Slot < 0 || e.Slot >= len(updated) {
			return fmt.Errorf("slot %d: %w", e.Slot, ErrBadSlot)
		}
		if seen[e.Slot] {
			return fmt.Errorf("slot %d: %w", e.Slot, ErrDupSlot)
		}
		seen[e.Slot] = true
		updated[e.Slot].Name = e.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range edits {
		if len(e.Image) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uri, err := EncodeDataURL(e.Image)
			if err != nil {
				return fmt.Errorf("slot %d: %w", e.Slot, err)
			}
			updated[e.Slot].Image = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return r.replace(ctx, updated)
}

// Reset drops the stored snapshot and goes back to the seed prizes.
func (r *Registry) Reset(ctx context.Context) error {
	r.editMu.Lock()
	defer r.editMu.Unlock()

	if err := r.store.Delete(ctx, storage.PrizesKey); err != nil {
		return fmt.Errorf("reset prizes: %w", err)
	}

	r.mu.Lock()
	r.prizes = clonePrizes(r.seed)
	prizes := clonePrizes(r.prizes)
	hooks := r.onChange
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, prizes)
	}
	return nil
}

func (r *Registry) replace(ctx context.Context, prizes []models.Prize) error {
	r.mu.Lock()
	if err := storage.SaveJSON(ctx, r.store, storage.PrizesKey, prizes); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("save prizes: %w", err)
	}
	r.prizes = prizes
	hooks := r.onChange
	r.mu.Unlock()

	logger.Infof("Saved %d prizes", len(prizes))
	for _, fn := range hooks {
		fn(ctx, clonePrizes(prizes))
	}
	return nil
}

// EncodeDataURL turns raw image bytes into a base64 data: URL.
func EncodeDataURL(b []byte) (string, error) {
	mime := mimetype.Detect(b)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%s: %w", mime.String(), ErrNotImage)
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

func clonePrizes(p []models.Prize) []models.Prize {
	out := make([]models.Prize, len(p))
	copy(out, p)
	return out
}
