package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/logger"
	"github.com/gomarketplace/cartstore/pkg/metrics"
)

const (
	opAdd       = "add"
	opIncrement = "increment"
	opDecrement = "decrement"
)

// StoreParams wires a Store. Storage and Logger are required.
type StoreParams struct {
	Storage Storage
	// Persister defaults to a SyncPersister over Storage.
	Persister  Persister
	Key        string
	LegacyKeys []string
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
}

// Store owns the ordered line items of one cart. All methods are safe for
// concurrent use; mutations are applied one at a time.
type Store struct {
	mu      sync.RWMutex
	items   []LineItem
	key     string
	persist Persister
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewStore hydrates the cart from storage and returns a ready Store.
func NewStore(ctx context.Context, params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	key := strings.TrimSpace(params.Key)
	if key == "" {
		return nil, fmt.Errorf("cart storage key required")
	}

	persist := params.Persister
	if persist == nil {
		persist = NewSyncPersister(params.Storage, params.Logger, params.Metrics, 0)
	}

	s := &Store{
		key:     key,
		persist: persist,
		logg:    params.Logger,
		metrics: params.Metrics,
	}

	ctx = s.logg.WithCartKey(ctx, key)
	if err := s.hydrate(ctx, params.Storage, params.LegacyKeys); err != nil {
		return nil, err
	}
	s.metrics.SetLineItems(len(s.items))
	return s, nil
}

func (s *Store) hydrate(ctx context.Context, storage Storage, legacyKeys []string) error {
	raw, found, err := storage.GetItem(ctx, s.key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}

	source := s.key
	if !found {
		for _, legacy := range legacyKeys {
			legacy = strings.TrimSpace(legacy)
			if legacy == "" || legacy == s.key {
				continue
			}
			raw, found, err = storage.GetItem(ctx, legacy)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load legacy cart snapshot")
			}
			if found {
				source = legacy
				break
			}
		}
	}

	if !found {
		s.items = []LineItem{}
		s.logg.Info(ctx, "cart.hydrate.empty")
		return nil
	}

	items, err := DecodeSnapshot(raw)
	if err == nil {
		err = checkSubtotal(items)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored cart snapshot is invalid").
			WithDetails(map[string]any{"key": source})
	}
	s.items = items

	ctx = s.logg.WithFields(ctx, map[string]any{"source_key": source, "lines": len(items)})
	s.logg.Info(ctx, "cart.hydrate.loaded")

	if source != s.key {
		// move the legacy snapshot under the primary key
		if err := s.persistLocked(ctx); err != nil {
			return err
		}
		s.logg.Info(ctx, "cart.hydrate.migrated_legacy_key")
	}
	return nil
}

// Add appends the product with quantity 1, or increments it when already present.
func (s *Store) Add(ctx context.Context, p Product) (LineItem, error) {
	if strings.TrimSpace(p.ID) == "" {
		s.metrics.ObserveMutation(opAdd, string(pkgerrors.CodeValidation))
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneLocked()
	idx := indexOf(next, p.ID)
	if idx >= 0 {
		next[idx].Quantity++
	} else {
		next = append(next, newLineItem(p))
		idx = len(next) - 1
	}
	item := next[idx]
	if err := checkSubtotal(next); err != nil {
		s.metrics.ObserveMutation(opAdd, string(pkgerrors.CodeValidation))
		return LineItem{}, subtotalError(err)
	}

	return item, s.commitLocked(ctx, opAdd, p.ID, next)
}

// Increment raises the quantity of an existing line item by one.
func (s *Store) Increment(ctx context.Context, id string) (LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, id)
	if idx < 0 {
		s.metrics.ObserveMutation(opIncrement, string(pkgerrors.CodeNotFound))
		return LineItem{}, notFound(id)
	}

	next := s.cloneLocked()
	next[idx].Quantity++
	item := next[idx]
	if err := checkSubtotal(next); err != nil {
		s.metrics.ObserveMutation(opIncrement, string(pkgerrors.CodeValidation))
		return LineItem{}, subtotalError(err)
	}

	return item, s.commitLocked(ctx, opIncrement, id, next)
}

// Decrement lowers the quantity of an existing line item by one, removing it
// when the quantity was 1. removed reports which of the two happened; the
// returned item carries the remaining quantity (0 when removed).
func (s *Store) Decrement(ctx context.Context, id string) (item LineItem, removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, id)
	if idx < 0 {
		s.metrics.ObserveMutation(opDecrement, string(pkgerrors.CodeNotFound))
		return LineItem{}, false, notFound(id)
	}

	next := s.cloneLocked()
	item = next[idx]
	if item.Quantity <= 1 {
		next = append(next[:idx], next[idx+1:]...)
		item.Quantity = 0
		removed = true
	} else {
		next[idx].Quantity--
		item = next[idx]
	}

	return item, removed, s.commitLocked(ctx, opDecrement, id, next)
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked()
}

// Get returns the line item with the given id.
func (s *Store) Get(id string) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexOf(s.items, id)
	if idx < 0 {
		return LineItem{}, false
	}
	return s.items[idx], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(s.items)
}

// View returns the items and their summary from one consistent read.
func (s *Store) View() ([]LineItem, Summary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked(), summarize(s.items)
}

// Key is the storage key snapshots are written under.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) cloneLocked() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// commitLocked swaps in next and hands the new snapshot to the persister.
// A storage failure keeps the in-memory state; an unencodable state is
// rolled back.
func (s *Store) commitLocked(ctx context.Context, op, id string, next []LineItem) error {
	prev := s.items
	s.items = next
	ctx = s.logg.WithProductID(s.logg.WithFields(s.logg.WithCartKey(ctx, s.key), map[string]any{"op": op}), id)

	if err := s.persistLocked(ctx); err != nil {
		code := pkgerrors.As(err).Code()
		s.metrics.ObserveMutation(op, string(code))
		if code == pkgerrors.CodeInternal {
			s.items = prev
			return err
		}
		s.metrics.SetLineItems(len(s.items))
		// the cart changed; callers must not retry the mutation
		return pkgerrors.Wrap(code, err, "cart updated but not saved").
			WithDetails(map[string]any{"applied": true})
	}

	s.metrics.ObserveMutation(op, "ok")
	s.metrics.SetLineItems(len(s.items))
	s.logg.Debug(ctx, "cart.mutation.applied")
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	payload, err := EncodeSnapshot(s.items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}
	if err := s.persist.Persist(ctx, Snapshot{Key: s.key, Payload: payload}); err != nil {
		s.logg.Error(ctx, "cart.persist.failed", err)
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart snapshot")
	}
	return nil
}

func subtotalError(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart total is too large")
}

func notFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line item %q not found", id))
}

// IsNotFound reports whether err is the missing line item condition.
func IsNotFound(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
}
