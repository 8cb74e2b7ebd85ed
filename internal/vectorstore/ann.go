package vectorstore

import (
	"sync"

	"github.com/coder/hnsw"
)

// annIndex is an approximate nearest-neighbor shortlist over FDE
// summary vectors, used once a store holds more than
// BruteForceThreshold records. It uses lazy deletion (orphaning a
// node's key mapping rather than mutating the graph), mirroring the
// workaround for coder/hnsw's instability when deleting a graph's last
// node.
type annIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	idMap  map[string]uint64
	keyMap map[uint64]string
	next   uint64
}

func newANNIndex() *annIndex {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25
	return &annIndex{graph: g, idMap: map[string]uint64{}, keyMap: map[uint64]string{}}
}

func (a *annIndex) upsert(id string, vector []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.idMap[id]; ok {
		delete(a.keyMap, existing)
		delete(a.idMap, id)
	}

	key := a.next
	a.next++
	a.graph.Add(hnsw.MakeNode(key, vector))
	a.idMap[id] = key
	a.keyMap[key] = id
}

func (a *annIndex) delete(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if key, ok := a.idMap[id]; ok {
		delete(a.keyMap, key)
		delete(a.idMap, id)
	}
}

// shortlist returns up to k candidate IDs nearest to query, for the
// caller to re-rank with exact MaxSim.
func (a *annIndex) shortlist(query []float32, k int) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.graph.Len() == 0 {
		return nil
	}

	nodes := a.graph.Search(query, k)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if id, ok := a.keyMap[n.Key]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (a *annIndex) count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.idMap)
}
