package store

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// HNSW tuning defaults.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 50

	// maxLevelCap bounds the level drawn for any node.
	maxLevelCap = 32
)

// HNSWConfig configures the graph index.
type HNSWConfig struct {
	// Dimensions is the fixed vector dimension.
	Dimensions int `json:"dimensions"`

	// M is the max neighbors per node on non-base levels.
	// Level 0 allows 2*M.
	M int `json:"m"`

	// EfConstruction is the candidate list size during insertion.
	EfConstruction int `json:"efConstruction"`

	// EfSearch is the minimum candidate list size during queries.
	EfSearch int `json:"efSearch"`

	// Seed seeds level generation. Zero means a fixed default, keeping
	// graph construction reproducible.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultHNSWConfig returns sensible defaults for the given dimension.
func DefaultHNSWConfig(dimensions int) HNSWConfig {
	return HNSWConfig{
		Dimensions:     dimensions,
		M:              DefaultM,
		EfConstruction: DefaultEfConstruction,
		EfSearch:       DefaultEfSearch,
	}
}

// HNSWEventType identifies an index mutation event.
type HNSWEventType string

const (
	HNSWEventAdd           HNSWEventType = "add"
	HNSWEventDelete        HNSWEventType = "delete"
	HNSWEventBatchProgress HNSWEventType = "batch:progress"
	HNSWEventClear         HNSWEventType = "clear"
)

// HNSWEvent is an observable side effect of an index mutation. Events are
// informational; no component may rely on them for correctness.
type HNSWEvent struct {
	Type      HNSWEventType
	ID        string
	Processed int
	Total     int
}

// hnswNode is one graph node. Neighbors[l] holds the adjacency set at level
// l for l in [0, Level]. Every edge is symmetric: if a lists b at level l,
// b lists a at level l.
type hnswNode struct {
	ID        string
	Vector    []float32
	Metadata  map[string]string
	Level     int
	Neighbors []map[string]struct{}
}

// HNSWIndex is a hand-built Hierarchical Navigable Small World graph for
// approximate nearest-neighbor search over Euclidean distance. Scores
// returned by Search are 1 - distance and are not bounded below.
type HNSWIndex struct {
	mu         sync.RWMutex
	config     HNSWConfig
	nodes      map[string]*hnswNode
	entryPoint string
	maxLevel   int
	levelMult  float64
	rng        *rand.Rand
	listeners  []func(HNSWEvent)
	closed     bool
}

// NewHNSWIndex creates an empty graph index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M <= 1 {
		cfg.M = DefaultM
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = DefaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = DefaultEfSearch
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	return &HNSWIndex{
		config:    cfg,
		nodes:     make(map[string]*hnswNode),
		levelMult: 1 / math.Log(float64(cfg.M)),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Subscribe registers an event callback. Callbacks run synchronously on the
// mutating goroutine and must not call back into the index.
func (g *HNSWIndex) Subscribe(fn func(HNSWEvent)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *HNSWIndex) emit(ev HNSWEvent) {
	for _, fn := range g.listeners {
		fn(ev)
	}
}

// randomLevel draws a node level from a geometric distribution: repeated
// coin flips with success probability levelMult, capped at maxLevelCap.
func (g *HNSWIndex) randomLevel() int {
	level := 0
	for g.rng.Float64() < g.levelMult && level < maxLevelCap {
		level++
	}
	return level
}

// maxConnections returns the neighbor cap at a level.
func (g *HNSWIndex) maxConnections(level int) int {
	if level == 0 {
		return g.config.M * 2
	}
	return g.config.M
}

// euclideanDistance computes the L2 distance between two vectors.
// Lengths are validated by the public entry points.
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// distItem pairs a node id with its distance to the current query.
type distItem struct {
	id   string
	dist float64
}

// minDistHeap pops the closest item first.
type minDistHeap []distItem

func (h minDistHeap) Len() int { return len(h) }
func (h minDistHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minDistHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minDistHeap) Push(x any) { *h = append(*h, x.(distItem)) }
func (h *minDistHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxDistHeap pops the farthest item first; it bounds the result set.
type maxDistHeap []distItem

func (h maxDistHeap) Len() int { return len(h) }
func (h maxDistHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxDistHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxDistHeap) Push(x any) { *h = append(*h, x.(distItem)) }
func (h *maxDistHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// searchLayer runs a greedy beam search at one level, starting from entryID.
// It returns up to ef items sorted by ascending distance. This is the single
// traversal primitive shared by insertion and query-time search.
func (g *HNSWIndex) searchLayer(query []float32, entryID string, ef, level int) []distItem {
	entry, ok := g.nodes[entryID]
	if !ok {
		return nil
	}

	entryDist := euclideanDistance(query, entry.Vector)
	visited := map[string]struct{}{entryID: {}}

	candidates := &minDistHeap{{id: entryID, dist: entryDist}}
	results := &maxDistHeap{{id: entryID, dist: entryDist}}

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(distItem)

		// The best unexplored candidate is farther than the worst kept
		// result: the beam has converged.
		if results.Len() >= ef && current.dist > (*results)[0].dist {
			break
		}

		node := g.nodes[current.id]
		if node == nil || level >= len(node.Neighbors) {
			continue
		}

		for neighborID := range node.Neighbors[level] {
			if _, seen := visited[neighborID]; seen {
				continue
			}
			visited[neighborID] = struct{}{}

			neighbor, ok := g.nodes[neighborID]
			if !ok {
				continue
			}
			d := euclideanDistance(query, neighbor.Vector)

			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, distItem{id: neighborID, dist: d})
				heap.Push(results, distItem{id: neighborID, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	sorted := make([]distItem, len(*results))
	copy(sorted, *results)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].dist != sorted[j].dist {
			return sorted[i].dist < sorted[j].dist
		}
		return sorted[i].id < sorted[j].id
	})
	return sorted
}

// greedyDescend finds the closest node to query at a level with ef=1.
func (g *HNSWIndex) greedyDescend(query []float32, entryID string, level int) string {
	best := g.searchLayer(query, entryID, 1, level)
	if len(best) == 0 {
		return entryID
	}
	return best[0].id
}

// Insert adds a vector to the graph. An existing id is replaced.
func (g *HNSWIndex) Insert(id string, vector []float32, metadata map[string]string) error {
	if len(vector) != g.config.Dimensions {
		return ErrDimensionMismatch{Expected: g.config.Dimensions, Got: len(vector)}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("index is closed")
	}

	if _, exists := g.nodes[id]; exists {
		g.removeLocked(id)
	}

	level := g.randomLevel()
	node := &hnswNode{
		ID:        id,
		Vector:    vector,
		Metadata:  metadata,
		Level:     level,
		Neighbors: make([]map[string]struct{}, level+1),
	}
	for l := range node.Neighbors {
		node.Neighbors[l] = make(map[string]struct{})
	}

	// First node: trivially becomes the entry point.
	if g.entryPoint == "" {
		g.nodes[id] = node
		g.entryPoint = id
		g.maxLevel = level
		g.emit(HNSWEvent{Type: HNSWEventAdd, ID: id})
		return nil
	}

	// Descend greedily through the levels above the new node's level to
	// find a good entry into its level range.
	current := g.entryPoint
	for l := g.maxLevel; l > level; l-- {
		current = g.greedyDescend(vector, current, l)
	}

	g.nodes[id] = node

	top := level
	if g.maxLevel < top {
		top = g.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := g.searchLayer(vector, current, g.config.EfConstruction, l)
		maxConn := g.maxConnections(l)

		count := 0
		for _, c := range candidates {
			if c.id == id {
				continue
			}
			if count >= maxConn {
				break
			}
			node.Neighbors[l][c.id] = struct{}{}
			neighbor := g.nodes[c.id]
			neighbor.Neighbors[l][id] = struct{}{}

			if len(neighbor.Neighbors[l]) > g.maxConnections(l) {
				g.pruneNeighbors(neighbor, l)
			}
			count++
		}

		if len(candidates) > 0 {
			current = candidates[0].id
		}
	}

	if level > g.maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}

	g.emit(HNSWEvent{Type: HNSWEventAdd, ID: id})
	return nil
}

// pruneNeighbors trims a node's adjacency set at one level back to its cap,
// keeping the closest neighbors by exact Euclidean distance.
func (g *HNSWIndex) pruneNeighbors(node *hnswNode, level int) {
	maxConn := g.maxConnections(level)
	if len(node.Neighbors[level]) <= maxConn {
		return
	}

	ranked := make([]distItem, 0, len(node.Neighbors[level]))
	for neighborID := range node.Neighbors[level] {
		neighbor, ok := g.nodes[neighborID]
		if !ok {
			continue
		}
		ranked = append(ranked, distItem{
			id:   neighborID,
			dist: euclideanDistance(node.Vector, neighbor.Vector),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].id < ranked[j].id
	})

	kept := make(map[string]struct{}, maxConn)
	for _, item := range ranked[:maxConn] {
		kept[item.id] = struct{}{}
	}

	// Dropped edges are removed from both endpoints to keep symmetry.
	for _, item := range ranked[maxConn:] {
		if dropped, ok := g.nodes[item.id]; ok && level < len(dropped.Neighbors) {
			delete(dropped.Neighbors[level], node.ID)
		}
	}
	node.Neighbors[level] = kept
}

// InsertBatch inserts entries sequentially, emitting progress events.
func (g *HNSWIndex) InsertBatch(entries []VectorEntry) error {
	total := len(entries)
	for i, e := range entries {
		if err := g.Insert(e.ID, e.Vector, e.Metadata); err != nil {
			return fmt.Errorf("insert %q: %w", e.ID, err)
		}
		g.mu.RLock()
		g.emit(HNSWEvent{Type: HNSWEventBatchProgress, ID: e.ID, Processed: i + 1, Total: total})
		g.mu.RUnlock()
	}
	return nil
}

// Search returns the k approximate nearest neighbors to query, best first,
// scored as 1 - euclideanDistance. Scores are unbounded below; callers must
// not assume cosine bounds. An empty graph returns an empty slice.
func (g *HNSWIndex) Search(query []float32, k int) ([]VectorResult, error) {
	if len(query) != g.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: g.config.Dimensions, Got: len(query)}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if g.entryPoint == "" || k <= 0 {
		return []VectorResult{}, nil
	}

	current := g.entryPoint
	for l := g.maxLevel; l >= 1; l-- {
		current = g.greedyDescend(query, current, l)
	}

	ef := g.config.EfSearch
	if k > ef {
		ef = k
	}
	found := g.searchLayer(query, current, ef, 0)

	if len(found) > k {
		found = found[:k]
	}
	results := make([]VectorResult, 0, len(found))
	for _, item := range found {
		node := g.nodes[item.id]
		results = append(results, VectorResult{
			ID:       item.id,
			Score:    1 - item.dist,
			Metadata: node.Metadata,
		})
	}
	return results, nil
}

// Delete removes a node and all its edges. If the node was the entry point,
// a new entry point is elected by linear scan over remaining levels; an
// empty graph resets entirely.
func (g *HNSWIndex) Delete(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("index is closed")
	}

	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	g.removeLocked(id)
	g.emit(HNSWEvent{Type: HNSWEventDelete, ID: id})
	return nil
}

// removeLocked unlinks and deletes a node. Caller holds the write lock.
func (g *HNSWIndex) removeLocked(id string) {
	node := g.nodes[id]

	for l, neighbors := range node.Neighbors {
		for neighborID := range neighbors {
			if neighbor, ok := g.nodes[neighborID]; ok && l < len(neighbor.Neighbors) {
				delete(neighbor.Neighbors[l], id)
			}
		}
	}
	delete(g.nodes, id)

	if g.entryPoint != id {
		return
	}

	// Re-elect: remaining node with the highest level wins.
	g.entryPoint = ""
	g.maxLevel = 0
	best := -1
	for nodeID, n := range g.nodes {
		if n.Level > best {
			best = n.Level
			g.entryPoint = nodeID
			g.maxLevel = n.Level
		}
	}
}

// Count returns the number of nodes in the graph.
func (g *HNSWIndex) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EntryPoint returns the current entry point id, empty when the graph is empty.
func (g *HNSWIndex) EntryPoint() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entryPoint
}

// MaxLevel returns the current maximum node level.
func (g *HNSWIndex) MaxLevel() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxLevel
}

// Clear removes every node and resets the entry point.
func (g *HNSWIndex) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("index is closed")
	}

	g.nodes = make(map[string]*hnswNode)
	g.entryPoint = ""
	g.maxLevel = 0
	g.emit(HNSWEvent{Type: HNSWEventClear})
	return nil
}

// Close marks the index closed. Idempotent.
func (g *HNSWIndex) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// persistedNode is the on-disk node layout. Neighbor sets serialize as
// sorted id lists per level.
type persistedNode struct {
	ID        string            `json:"id"`
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Level     int               `json:"level"`
	Neighbors [][]string        `json:"neighbors"`
}

// persistedGraph is the single JSON blob written by Save.
type persistedGraph struct {
	Config     HNSWConfig      `json:"config"`
	EntryPoint string          `json:"entryPoint"`
	MaxLevel   int             `json:"maxLevel"`
	Nodes      []persistedNode `json:"nodes"`
}

// Save serializes the full graph to path as one JSON blob.
// Uses atomic save (temp file + rename).
func (g *HNSWIndex) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return fmt.Errorf("index is closed")
	}

	nodes := make([]persistedNode, 0, len(g.nodes))
	for _, node := range g.nodes {
		pn := persistedNode{
			ID:        node.ID,
			Vector:    node.Vector,
			Metadata:  node.Metadata,
			Level:     node.Level,
			Neighbors: make([][]string, len(node.Neighbors)),
		}
		for l, set := range node.Neighbors {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			pn.Neighbors[l] = ids
		}
		nodes = append(nodes, pn)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	data, err := json.Marshal(persistedGraph{
		Config:     g.config,
		EntryPoint: g.entryPoint,
		MaxLevel:   g.maxLevel,
		Nodes:      nodes,
	})
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write graph file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename graph file: %w", err)
	}
	return nil
}

// Load replaces the in-memory graph with the persisted one. The swap is
// atomic: a decode failure leaves the current graph untouched.
func (g *HNSWIndex) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read graph file: %w", err)
	}

	var persisted persistedGraph
	if err := json.Unmarshal(data, &persisted); err != nil {
		slog.Warn("corrupt hnsw index file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("decode graph: %w", err)
	}

	nodes := make(map[string]*hnswNode, len(persisted.Nodes))
	for _, pn := range persisted.Nodes {
		node := &hnswNode{
			ID:        pn.ID,
			Vector:    pn.Vector,
			Metadata:  pn.Metadata,
			Level:     pn.Level,
			Neighbors: make([]map[string]struct{}, len(pn.Neighbors)),
		}
		for l, ids := range pn.Neighbors {
			set := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			node.Neighbors[l] = set
		}
		nodes[pn.ID] = node
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.config = persisted.Config
	g.levelMult = 1 / math.Log(float64(persisted.Config.M))
	g.entryPoint = persisted.EntryPoint
	g.maxLevel = persisted.MaxLevel
	g.nodes = nodes
	return nil
}
