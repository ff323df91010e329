package repository

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/statboard/internal/domain/keys"
	"github.com/okian/statboard/pkg/errs"
	"github.com/okian/statboard/pkg/metrics"
)

// Treap-backed, in-memory Store implementation.
//
// Every index is its own treap ordered by (partition key, sort key, primary
// id). The primary id breaks ties between items that share an index key, the
// way a secondary index may hold several items under one key. An item that
// lacks an index's key attributes is absent from that index.

const storeMemory = "memory"

type entryKey struct {
	pk string
	sk string
	id string // PK and SK of the owning item
}

func (a entryKey) less(b entryKey) bool {
	if a.pk != b.pk {
		return a.pk < b.pk
	}
	if a.sk != b.sk {
		return a.sk < b.sk
	}
	return a.id < b.id
}

// position reports where k lies relative to the block of keys in partition pk
// whose sort key begins with prefix: -1 before, 0 inside, 1 after.
func (a entryKey) position(pk, prefix string) int {
	switch {
	case a.pk < pk:
		return -1
	case a.pk > pk:
		return 1
	case strings.HasPrefix(a.sk, prefix):
		return 0
	case a.sk < prefix:
		return -1
	default:
		return 1
	}
}

// treap node
type node struct {
	key   entryKey
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, key entryKey, prio uint64) *node {
	if n == nil {
		return &node{key: key, prio: prio, size: 1}
	}
	if key.less(n.key) {
		n.left = insert(n.left, key, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key entryKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case key == n.key:
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key)
		}
	case key.less(n.key):
		n.left = deleteNode(n.left, key)
	default:
		n.right = deleteNode(n.right, key)
	}
	fix(n)
	return n
}

// collectRange appends, in ascending order, the ids of every entry in
// partition pk whose sort key begins with prefix. Subtrees entirely outside
// the block are skipped.
func collectRange(n *node, pk, prefix string, out *[]string) {
	if n == nil {
		return
	}
	pos := n.key.position(pk, prefix)
	if pos >= 0 {
		collectRange(n.left, pk, prefix, out)
	}
	if pos == 0 {
		*out = append(*out, n.key.id)
	}
	if pos <= 0 {
		collectRange(n.right, pk, prefix, out)
	}
}

type treap struct {
	root *node
}

// MemStore is an in-memory Store with the same range-read semantics as the
// DynamoDB table.
type MemStore struct {
	mu      sync.RWMutex
	items   map[string]Item
	indexes map[string]*treap // by index name, "" for primary
	rng     *rand.Rand
	seed    uint64

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

// NewMemStore constructs an empty store and starts its metrics updater,
// which stops when ctx is done or Close is called.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		items:                 make(map[string]Item),
		indexes:               make(map[string]*treap, 4),
		seed:                  uint64(time.Now().UnixNano()), //nolint:gosec // priorities only
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15)) //nolint:gosec // priorities only
	for _, ix := range keys.Indexes() {
		s.indexes[ix.Name] = &treap{}
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Kind implements Store.
func (s *MemStore) Kind() string { return storeMemory }

// Put implements Store. An item with the same (PK, SK) is replaced and its
// old index entries removed.
func (s *MemStore) Put(ctx context.Context, item Item) error {
	start := time.Now()
	defer func() {
		metrics.RecordStorageLatency(storeMemory, "put", float64(time.Since(start).Milliseconds()))
	}()
	if err := ctx.Err(); err != nil {
		return errs.WrapKind("repository.memory.put", errs.ErrStorage, err)
	}

	pk, okPK := stringKey(item, keys.AttrPK)
	sk, okSK := stringKey(item, keys.AttrSK)
	if !okPK || !okSK {
		metrics.RecordStorageError(storeMemory, "put", "ValidationException")
		return errs.WrapKind("repository.memory.put", errs.ErrStorage, ErrMissingKey)
	}
	id := pk + "\x00" + sk

	stored := make(Item, len(item))
	for k, v := range item {
		stored[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.items[id]; ok {
		for _, ix := range keys.Indexes() {
			if key, ok := indexKey(old, ix, id); ok {
				t := s.indexes[ix.Name]
				t.root = deleteNode(t.root, key)
			}
		}
	}
	s.items[id] = stored
	for _, ix := range keys.Indexes() {
		if key, ok := indexKey(stored, ix, id); ok {
			t := s.indexes[ix.Name]
			t.root = insert(t.root, key, s.rng.Uint64())
		}
	}
	return nil
}

// Query implements Store.
func (s *MemStore) Query(ctx context.Context, q RangeQuery) ([]Item, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStorageLatency(storeMemory, "query", float64(time.Since(start).Milliseconds()))
	}()
	if q.Limit < 1 {
		return nil, errs.WrapKind("repository.memory.query", errs.ErrValidation, ErrInvalidLimit)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.WrapKind("repository.memory.query", errs.ErrStorage, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.indexes[q.Index.Name]
	if !ok {
		metrics.RecordStorageError(storeMemory, "query", "ResourceNotFoundException")
		return nil, errs.WrapKind("repository.memory.query", errs.ErrStorage, ErrUnknownIndex)
	}

	ids := make([]string, 0, q.Limit)
	collectRange(t.root, q.PartitionKey, q.SortPrefix, &ids)
	if !q.Forward {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	if len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out, nil
}

// Count returns the number of stored items.
func (s *MemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IndexLen returns the number of entries in ix.
func (s *MemStore) IndexLen(ix keys.Index) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.indexes[ix.Name]; ok {
		return nsize(t.root)
	}
	return 0
}

// Close stops the metrics updater.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func indexKey(item Item, ix keys.Index, id string) (entryKey, bool) {
	pk, ok := stringKey(item, ix.PartitionAttr)
	if !ok {
		return entryKey{}, false
	}
	sk, ok := stringKey(item, ix.SortAttr)
	if !ok {
		return entryKey{}, false
	}
	return entryKey{pk: pk, sk: sk, id: id}, true
}

// startMetricsUpdater starts a background goroutine that updates per-index item gauges.
func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemStore) updateMetrics() {
	for _, ix := range keys.Indexes() {
		metrics.UpdateStoreItems(ix.String(), s.IndexLen(ix))
	}
}
