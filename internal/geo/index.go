package geo

import (
	"sync"

	"github.com/asim/quadtree"
)

type entry struct {
	id    string
	point Point
}

// Index answers "which ids lie within r km of here" over a set of points.
// The quadtree bounding box narrows candidates; haversine decides membership.
type Index struct {
	mu    sync.RWMutex
	tree  *quadtree.QuadTree
	count int
}

// NewIndex returns an empty index covering the whole globe.
func NewIndex() *Index {
	center := quadtree.NewPoint(0, 0, nil)
	half := quadtree.NewPoint(90, 180, nil)
	return &Index{tree: quadtree.New(quadtree.NewAABB(center, half), 0, nil)}
}

// Insert adds an id at the given point. Invalid points are ignored.
func (i *Index) Insert(id string, p Point) bool {
	if !p.Valid() {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.tree.Insert(quadtree.NewPoint(p.Lat, p.Lng, entry{id: id, point: p})) {
		return false
	}
	i.count++
	return true
}

// Len returns the number of indexed points.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.count
}

// Within returns the ids whose point lies within radiusKm of center, keyed by
// id with the exact distance as value.
func (i *Index) Within(center Point, radiusKm float64) map[string]float64 {
	out := make(map[string]float64)
	if radiusKm <= 0 || !center.Valid() {
		return out
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	c := quadtree.NewPoint(center.Lat, center.Lng, nil)
	boundary := quadtree.NewAABB(c, c.HalfPoint(radiusKm*1000))
	for _, pt := range i.tree.Search(boundary) {
		e, ok := pt.Data().(entry)
		if !ok {
			continue
		}
		// bounding box is approximate near the poles and the antimeridian
		if d := Haversine(center, e.point); d <= radiusKm {
			out[e.id] = d
		}
	}
	return out
}
