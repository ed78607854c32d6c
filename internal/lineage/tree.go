// Package lineage implements the lineage tracker of spec §4.11: an
// arena-indexed parent/child graph with integrity checks, per-edge metric
// deltas, transformation inference, and cross-generation pattern
// detection.
package lineage

// State is the closed lineage-node lifecycle state (spec §3 "Lineage Node").
type State string

const (
	StateRaw      State = "RAW"
	StateDerived  State = "DERIVED"
	StateFinal    State = "FINAL"
)

// Metrics is the subset of a version's measurements the lineage tracker
// compares across edges.
type Metrics struct {
	IntegratedLoudness float64
	TruePeak           float64
	DynamicRange       float64
	Width              float64
	SpectralBalance    float64
	SampleRateHz       int
}

// Version is one input node to BuildLineageTree: an asset snapshot plus
// its parent reference and applied operations.
type Version struct {
	ID         string
	ParentID   string // "" means no parent
	Metrics    Metrics
	Operations []string
	CreatedAtUnix int64
}

// Node is an arena-stored lineage node: ParentIdx/ChildIdxs reference other
// slots in the same Tree.Nodes slice by index rather than by pointer, per
// spec §9's arena/index recommendation for avoiding ownership cycles.
type Node struct {
	Version
	State      State
	ParentIdx  int // -1 if none
	ChildIdxs  []int
	Depth      int
}

// Tree is the arena: a dense node slice plus an id→index lookup and the
// set of root indices (nodes with no parent).
type Tree struct {
	Nodes   []Node
	IndexOf map[string]int
	Roots   []int
}

// IntegrityReport is the output of the integrity pass spec §4.11 requires
// before a tree is trusted.
type IntegrityReport struct {
	DuplicateIDs    []string
	OrphanRefs      []string // child IDs whose parentId does not resolve
	Cycles          [][]string
}

func (r IntegrityReport) Clean() bool {
	return len(r.DuplicateIDs) == 0 && len(r.OrphanRefs) == 0 && len(r.Cycles) == 0
}

// BuildLineageTree implements `buildLineageTree(versions) → Tree` (spec
// §4.11), returning the tree alongside its integrity report. A tree built
// from unclean input still reflects whatever structure it could resolve;
// callers must check the report before trusting traversal results (spec
// §8 invariant 7).
func BuildLineageTree(versions []Version) (*Tree, IntegrityReport) {
	var report IntegrityReport

	tree := &Tree{IndexOf: make(map[string]int, len(versions))}
	seen := make(map[string]bool)

	for _, v := range versions {
		if seen[v.ID] {
			report.DuplicateIDs = append(report.DuplicateIDs, v.ID)
			continue
		}
		seen[v.ID] = true
		tree.Nodes = append(tree.Nodes, Node{Version: v, ParentIdx: -1})
		tree.IndexOf[v.ID] = len(tree.Nodes) - 1
	}

	for i := range tree.Nodes {
		v := tree.Nodes[i].Version
		if v.ParentID == "" {
			tree.Roots = append(tree.Roots, i)
			continue
		}
		parentIdx, ok := tree.IndexOf[v.ParentID]
		if !ok {
			report.OrphanRefs = append(report.OrphanRefs, v.ID)
			tree.Roots = append(tree.Roots, i)
			continue
		}
		tree.Nodes[i].ParentIdx = parentIdx
		tree.Nodes[parentIdx].ChildIdxs = append(tree.Nodes[parentIdx].ChildIdxs, i)
	}

	report.Cycles = detectCycles(tree)

	assignDepthsAndStates(tree)

	return tree, report
}

func detectCycles(tree *Tree) [][]string {
	var cycles [][]string
	state := make([]int, len(tree.Nodes)) // 0=unvisited 1=in-progress 2=done

	var path []string
	var visit func(i int) bool
	visit = func(i int) bool {
		if state[i] == 1 {
			// Found a cycle; report the path from its start back to i.
			start := 0
			for k, id := range path {
				if id == tree.Nodes[i].ID {
					start = k
					break
				}
			}
			cycle := append(append([]string(nil), path[start:]...), tree.Nodes[i].ID)
			cycles = append(cycles, cycle)
			return true
		}
		if state[i] == 2 {
			return false
		}
		state[i] = 1
		path = append(path, tree.Nodes[i].ID)
		if tree.Nodes[i].ParentIdx >= 0 {
			visit(tree.Nodes[i].ParentIdx)
		}
		path = path[:len(path)-1]
		state[i] = 2
		return false
	}

	for i := range tree.Nodes {
		if state[i] == 0 {
			visit(i)
		}
	}
	return cycles
}

func assignDepthsAndStates(tree *Tree) {
	var assign func(i, depth int)
	assign = func(i, depth int) {
		tree.Nodes[i].Depth = depth
		for _, c := range tree.Nodes[i].ChildIdxs {
			assign(c, depth+1)
		}
	}
	for _, r := range tree.Roots {
		assign(r, 0)
	}

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		switch {
		case n.ParentIdx < 0:
			n.State = StateRaw
		case len(n.ChildIdxs) == 0 && n.Depth > 0:
			n.State = StateFinal
		default:
			n.State = StateDerived
		}
	}
}
