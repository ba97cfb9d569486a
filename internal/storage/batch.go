package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
)

const (
	DefaultMaxPerBatch = 200
	DefaultMaxBatches  = 10

	// claims lost to concurrent writers before Allocate gives up on a shard
	maxClaimAttempts = 16
	shardReadLimit   = 4
)

type BatchConfig struct {
	Collection  string
	ShardPrefix string
	SlotPrefix  string
	MaxPerBatch int
	MaxBatches  int
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Collection:  CollectionUsers,
		ShardPrefix: "batch_",
		SlotPrefix:  "user_",
		MaxPerBatch: DefaultMaxPerBatch,
		MaxBatches:  DefaultMaxBatches,
	}
}

// Location is where a record lives: shard document and slot field.
type Location struct {
	ShardID string `json:"shardId"`
	SlotKey string `json:"slotKey"`
}

// Path joins the slot key with the given segments into a dotted field path.
func (l Location) Path(segs ...string) (string, error) {
	return docstore.JoinPath(append([]string{l.SlotKey}, segs...)...)
}

// BatchStore spreads records of type T over numbered shard documents, each
// holding at most MaxPerBatch records as slot fields (user_0, user_1, ...).
type BatchStore[T any] struct {
	store docstore.Store
	cfg   BatchConfig
	log   *logger.Logger
}

func NewBatchStore[T any](store docstore.Store, cfg BatchConfig, log *logger.Logger) *BatchStore[T] {
	if cfg.MaxPerBatch <= 0 {
		cfg.MaxPerBatch = DefaultMaxPerBatch
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = DefaultMaxBatches
	}
	return &BatchStore[T]{store: store, cfg: cfg, log: log.With("component", "BatchStore", "collection", cfg.Collection)}
}

func (b *BatchStore[T]) ShardID(n int) string {
	return b.cfg.ShardPrefix + strconv.Itoa(n)
}

func (b *BatchStore[T]) slotKey(i int) string {
	return b.cfg.SlotPrefix + strconv.Itoa(i)
}

// slotIndex parses a slot field name; ok is false for any other field.
func (b *BatchStore[T]) slotIndex(field string) (int, bool) {
	if !strings.HasPrefix(field, b.cfg.SlotPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(field, b.cfg.SlotPrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Allocate stores the record built by build in the lowest free slot of the first
// shard with capacity, creating the next shard when all existing ones are full.
// It fails with ErrCapacityExceeded once MaxBatches shards are full.
func (b *BatchStore[T]) Allocate(ctx context.Context, build func(Location) T) (Location, error) {
	for n := 1; n <= b.cfg.MaxBatches; n++ {
		shardID := b.ShardID(n)
		for attempt := 0; ; attempt++ {
			if attempt == maxClaimAttempts {
				return Location{}, fmt.Errorf("allocate in %s: %w", shardID, ErrAllocationConflict)
			}

			doc, err := b.readShard(ctx, shardID)
			if err != nil {
				return Location{}, err
			}
			used := b.occupied(doc)
			if len(used) >= b.cfg.MaxPerBatch {
				break
			}

			loc := Location{ShardID: shardID, SlotKey: b.slotKey(lowestFree(used))}
			value, err := docstore.Encode(build(loc))
			if err != nil {
				return Location{}, err
			}
			claimed, err := b.store.ClaimField(ctx, b.cfg.Collection, shardID, loc.SlotKey, value)
			if err != nil {
				return Location{}, fmt.Errorf("allocate %s/%s: %w", shardID, loc.SlotKey, err)
			}
			if claimed {
				b.log.Debug("allocated slot", "shard", shardID, "slot", loc.SlotKey)
				return loc, nil
			}
			b.log.Debug("slot taken concurrently, rereading shard", "shard", shardID, "slot", loc.SlotKey)
		}
	}
	return Location{}, fmt.Errorf("%d shards of %d records: %w", b.cfg.MaxBatches, b.cfg.MaxPerBatch, ErrCapacityExceeded)
}

// Get decodes the record at loc.
func (b *BatchStore[T]) Get(ctx context.Context, loc Location) (T, bool, error) {
	var zero T
	doc, err := b.readShard(ctx, loc.ShardID)
	if err != nil || doc == nil {
		return zero, false, err
	}
	raw, ok := doc[loc.SlotKey]
	if !ok {
		return zero, false, nil
	}
	var rec T
	if err := docstore.Decode(raw, &rec); err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Scan visits every record in shard then slot order until fn returns false.
// Shards that do not exist are skipped; records that fail to decode are logged
// and skipped.
func (b *BatchStore[T]) Scan(ctx context.Context, fn func(Location, T) bool) error {
	docs := make([]docstore.Document, b.cfg.MaxBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shardReadLimit)
	for n := 1; n <= b.cfg.MaxBatches; n++ {
		n := n
		g.Go(func() error {
			doc, err := b.readShard(gctx, b.ShardID(n))
			if err != nil {
				return err
			}
			docs[n-1] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for n, doc := range docs {
		if doc == nil {
			continue
		}
		shardID := b.ShardID(n + 1)
		for _, idx := range sortedSlots(b.occupied(doc)) {
			slot := b.slotKey(idx)
			var rec T
			if err := docstore.Decode(doc[slot], &rec); err != nil {
				b.log.Warn("skipping undecodable record", "shard", shardID, "slot", slot, "error", err)
				continue
			}
			if !fn(Location{ShardID: shardID, SlotKey: slot}, rec) {
				return nil
			}
		}
	}
	return nil
}

// FindBy returns the first record matching pred.
func (b *BatchStore[T]) FindBy(ctx context.Context, pred func(T) bool) (Location, T, bool, error) {
	var (
		found Location
		match T
		ok    bool
	)
	err := b.Scan(ctx, func(loc Location, rec T) bool {
		if pred(rec) {
			found, match, ok = loc, rec, true
			return false
		}
		return true
	})
	return found, match, ok, err
}

// Update writes fields (relative to the record) without touching sibling slots.
func (b *BatchStore[T]) Update(ctx context.Context, loc Location, fields map[string]any) error {
	scoped := make(map[string]any, len(fields))
	for field, v := range fields {
		path, err := loc.Path(strings.Split(field, ".")...)
		if err != nil {
			return err
		}
		scoped[path] = v
	}
	return b.store.SetFields(ctx, b.cfg.Collection, loc.ShardID, scoped)
}

// AddToSet unions value into the array field of the record at loc.
func (b *BatchStore[T]) AddToSet(ctx context.Context, loc Location, field string, value any) error {
	path, err := loc.Path(field)
	if err != nil {
		return err
	}
	return b.store.AddToSet(ctx, b.cfg.Collection, loc.ShardID, path, value)
}

// readShard returns nil, nil for a shard that has not been created yet.
func (b *BatchStore[T]) readShard(ctx context.Context, shardID string) (docstore.Document, error) {
	doc, err := b.store.Get(ctx, b.cfg.Collection, shardID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read shard %s: %w", shardID, err)
	}
	return doc, nil
}

func (b *BatchStore[T]) occupied(doc docstore.Document) map[int]struct{} {
	used := make(map[int]struct{}, len(doc))
	for field := range doc {
		if i, ok := b.slotIndex(field); ok {
			used[i] = struct{}{}
		}
	}
	return used
}

func lowestFree(used map[int]struct{}) int {
	for i := 0; ; i++ {
		if _, taken := used[i]; !taken {
			return i
		}
	}
}

func sortedSlots(used map[int]struct{}) []int {
	out := make([]int, 0, len(used))
	for i := range used {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
