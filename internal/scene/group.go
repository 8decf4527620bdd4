package scene

import (
	"fmt"
	"sort"
	"strings"

	"meshbatch/internal/config"
)

// Policy selects which scene indices produce documents.
type Policy string

const (
	// PolicyOccurred emits only indices referenced by at least one file.
	PolicyOccurred Policy = config.PolicyOccurred
	// PolicyDense emits every index from 0 through the largest seen, so
	// missing scenes produce documents with no shapes.
	PolicyDense Policy = config.PolicyDense
)

// ParsePolicy validates a policy name.
func ParsePolicy(value string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(value))); p {
	case PolicyOccurred, PolicyDense:
		return p, nil
	case "":
		return PolicyOccurred, nil
	default:
		return "", fmt.Errorf("unknown scene policy %q (want %q or %q)", value, PolicyOccurred, PolicyDense)
	}
}

// SceneGroup holds the meshes that make up one scene.
type SceneGroup struct {
	Index     int
	Interface *MeshFileRef
	Solid     *MeshFileRef
	Debris    []MeshFileRef
}

// ShapeCount returns the number of shape blocks the group renders to.
func (g SceneGroup) ShapeCount() int {
	n := len(g.Debris)
	if g.Interface != nil {
		n++
	}
	if g.Solid != nil {
		n++
	}
	return n
}

// Grouper accumulates mesh references by scene index. It is not safe for
// concurrent use; build one per run.
type Grouper struct {
	groups     map[int]*SceneGroup
	max        int
	denseLimit int
}

// DefaultMaxDenseScenes caps the dense policy unless SetDenseLimit says otherwise.
const DefaultMaxDenseScenes = 100000

// NewGrouper returns an empty grouper.
func NewGrouper() *Grouper {
	return &Grouper{groups: make(map[int]*SceneGroup), max: -1, denseLimit: DefaultMaxDenseScenes}
}

// SetDenseLimit sets the largest number of groups the dense policy may
// produce. Non-positive values restore the default.
func (g *Grouper) SetDenseLimit(n int) {
	if n <= 0 {
		n = DefaultMaxDenseScenes
	}
	g.denseLimit = n
}

// DenseExceeded reports whether filling every index up to Max would produce
// more groups than the dense limit allows.
func (g *Grouper) DenseExceeded() bool {
	return g.max >= g.denseLimit
}

// Add files ref under its scene. Interface and solid slots keep the last
// reference added; the displaced one is returned so callers can report it.
// Debris references append in call order.
func (g *Grouper) Add(ref MeshFileRef) *MeshFileRef {
	group, ok := g.groups[ref.Scene]
	if !ok {
		group = &SceneGroup{Index: ref.Scene}
		g.groups[ref.Scene] = group
	}
	if ref.Scene > g.max {
		g.max = ref.Scene
	}

	stored := ref
	var displaced *MeshFileRef
	switch ref.Role {
	case RoleInterface:
		displaced = group.Interface
		group.Interface = &stored
	case RoleSolid:
		displaced = group.Solid
		group.Solid = &stored
	case RoleDebris:
		group.Debris = append(group.Debris, stored)
	}
	return displaced
}

// Len returns the number of distinct scene indices seen.
func (g *Grouper) Len() int {
	return len(g.groups)
}

// Max returns the largest scene index seen, or false when nothing was added.
func (g *Grouper) Max() (int, bool) {
	return g.max, g.max >= 0
}

// Groups returns the scene groups in ascending index order. The dense policy
// degrades to occurred indices when DenseExceeded is true.
func (g *Grouper) Groups(policy Policy) []SceneGroup {
	if policy == PolicyDense && !g.DenseExceeded() {
		if g.max < 0 {
			return nil
		}
		out := make([]SceneGroup, 0, g.max+1)
		for idx := 0; idx <= g.max; idx++ {
			if group, ok := g.groups[idx]; ok {
				out = append(out, cloneGroup(group))
				continue
			}
			out = append(out, SceneGroup{Index: idx})
		}
		return out
	}

	indices := make([]int, 0, len(g.groups))
	for idx := range g.groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := make([]SceneGroup, 0, len(indices))
	for _, idx := range indices {
		out = append(out, cloneGroup(g.groups[idx]))
	}
	return out
}

func cloneGroup(src *SceneGroup) SceneGroup {
	dst := SceneGroup{Index: src.Index}
	if src.Interface != nil {
		ref := *src.Interface
		dst.Interface = &ref
	}
	if src.Solid != nil {
		ref := *src.Solid
		dst.Solid = &ref
	}
	if len(src.Debris) > 0 {
		dst.Debris = append([]MeshFileRef(nil), src.Debris...)
	}
	return dst
}
