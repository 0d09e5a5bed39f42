// Package graph builds the cross-file usage index over parsed classes and
// ranks classes by how central they are in the dependency graph.
package graph

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/phobologic/phpscope/internal/model"
)

// BuildIndex counts, for every class name, how many parsed classes depend on
// it. Each parsed class is present with at least 0; dependency targets that
// were never parsed (vendor code, built-in classes) are counted as well.
func BuildIndex(files []model.File) model.Index {
	idx := make(model.Index, len(files))
	for i := range files {
		class := &files[i].Class
		if _, ok := idx[class.Name]; !ok {
			idx[class.Name] = 0
		}
		for _, dep := range class.Dependencies {
			idx[dep]++
		}
	}
	return idx
}

// Dependents returns the sorted names of the parsed classes that depend on name.
func Dependents(files []model.File, name string) []string {
	var out []string
	for i := range files {
		if files[i].Class.HasDependency(name) {
			out = append(out, files[i].Class.Name)
		}
	}
	sort.Strings(out)
	return out
}

const (
	damping   = 0.85
	maxRounds = 100
	tolerance = 1e-6
)

// Rank runs PageRank over the dependency edges between parsed classes. An
// edge points from a class to each parsed class it depends on, so heavily
// depended-upon classes rank highest. Scores sum to 1.
func Rank(files []model.File) map[string]float64 {
	if len(files) == 0 {
		return map[string]float64{}
	}

	ids := make(map[string]int, len(files))
	names := make([]string, 0, len(files))
	for i := range files {
		name := files[i].Class.Name
		if _, dup := ids[name]; dup {
			continue
		}
		ids[name] = len(names)
		names = append(names, name)
	}
	n := len(names)

	out := make([][]int, n)
	for i := range files {
		src := ids[files[i].Class.Name]
		for _, dep := range files[i].Class.Dependencies {
			tgt, ok := ids[dep]
			if !ok || tgt == src {
				continue
			}
			out[src] = append(out[src], tgt)
		}
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}
	next := make([]float64, n)
	teleport := (1 - damping) / float64(n)

	for range maxRounds {
		// Classes without outgoing edges spread their score evenly.
		var dangling float64
		for i, targets := range out {
			if len(targets) == 0 {
				dangling += rank[i]
			}
		}
		base := teleport + damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for src, targets := range out {
			if len(targets) == 0 {
				continue
			}
			share := damping * rank[src] / float64(len(targets))
			for _, tgt := range targets {
				next[tgt] += share
			}
		}

		var delta float64
		for i := range rank {
			delta += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if delta < tolerance {
			break
		}
	}

	scores := make(map[string]float64, n)
	for i, name := range names {
		scores[name] = rank[i]
	}
	return scores
}

// Cycles returns the groups of parsed classes that depend on each other
// transitively (strongly connected components with more than one member).
// Names inside a group are sorted, and groups are ordered by their first name.
func Cycles(files []model.File) [][]string {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(files))
	var names []string
	for i := range files {
		name := files[i].Class.Name
		if _, dup := ids[name]; dup {
			continue
		}
		id := int64(len(names))
		ids[name] = id
		names = append(names, name)
		g.AddNode(simple.Node(id))
	}
	for i := range files {
		from := ids[files[i].Class.Name]
		for _, dep := range files[i].Class.Dependencies {
			to, ok := ids[dep]
			// simple graphs reject self-loops
			if !ok || to == from {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		group := make([]string, 0, len(scc))
		for _, n := range scc {
			group = append(group, names[n.ID()])
		}
		sort.Strings(group)
		cycles = append(cycles, group)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
