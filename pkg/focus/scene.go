package focus

import (
	"sync"

	"cogentcore.org/core/math32"
)

// Shape kinds in a GeometryScene.
const (
	KindBox      = "box"
	KindSphere   = "sphere"
	KindTriangle = "triangle"
)

// Object is one surface in a GeometryScene.
type Object struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	Box      math32.Box3       `json:"box,omitempty"`
	Sphere   math32.Sphere     `json:"sphere,omitempty"`
	Triangle [3]math32.Vector3 `json:"triangle,omitempty"`
}

// Hit is a ray intersection.
type Hit struct {
	Object   string         `json:"object"`
	Point    math32.Vector3 `json:"point"`
	Distance float32        `json:"distance"`
}

// GeometryScene is a Scene made of boxes, spheres and triangles.
// Triangles are hit from both sides.
type GeometryScene struct {
	mu      sync.RWMutex
	objects []Object
}

// NewGeometryScene creates a scene from objects.
func NewGeometryScene(objects ...Object) *GeometryScene {
	return &GeometryScene{objects: append([]Object(nil), objects...)}
}

// AddBox adds an axis-aligned box.
func (g *GeometryScene) AddBox(name string, min, max math32.Vector3) {
	g.add(Object{Name: name, Kind: KindBox, Box: math32.Box3{Min: min, Max: max}})
}

// AddSphere adds a sphere.
func (g *GeometryScene) AddSphere(name string, center math32.Vector3, radius float32) {
	g.add(Object{Name: name, Kind: KindSphere, Sphere: math32.Sphere{Center: center, Radius: radius}})
}

// AddTriangle adds a triangle.
func (g *GeometryScene) AddTriangle(name string, a, b, c math32.Vector3) {
	g.add(Object{Name: name, Kind: KindTriangle, Triangle: [3]math32.Vector3{a, b, c}})
}

func (g *GeometryScene) add(o Object) {
	g.mu.Lock()
	g.objects = append(g.objects, o)
	g.mu.Unlock()
}

// Replace swaps the scene contents.
func (g *GeometryScene) Replace(objects []Object) {
	g.mu.Lock()
	g.objects = append([]Object(nil), objects...)
	g.mu.Unlock()
}

// Objects returns a copy of the scene contents.
func (g *GeometryScene) Objects() []Object {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Object(nil), g.objects...)
}

// Intersect returns the nearest hit along the ray.
func (g *GeometryScene) Intersect(origin, dir math32.Vector3) (Hit, bool) {
	ray := math32.Ray{Origin: origin, Dir: dir.Normal()}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var best Hit
	found := false
	for _, o := range g.objects {
		var (
			pt  math32.Vector3
			hit bool
		)
		switch o.Kind {
		case KindBox:
			pt, hit = ray.IntersectBox(o.Box)
		case KindSphere:
			pt, hit = ray.IntersectSphere(o.Sphere)
		case KindTriangle:
			pt, hit = ray.IntersectTriangle(o.Triangle[0], o.Triangle[1], o.Triangle[2], false)
		}
		if !hit {
			continue
		}
		d := pt.DistanceTo(origin)
		if !found || d < best.Distance {
			best = Hit{Object: o.Name, Point: pt, Distance: d}
			found = true
		}
	}
	return best, found
}

// CastRay implements Scene.
func (g *GeometryScene) CastRay(origin, dir math32.Vector3) (math32.Vector3, bool) {
	h, ok := g.Intersect(origin, dir)
	return h.Point, ok
}
