// Package graph holds the desired-state resource DAG.
package graph

import (
	"fmt"
	"strings"

	"github.com/yaegashi/iotops/domain/model"
)

// Graph is an insertion-ordered DAG of resources keyed by ID.
type Graph struct {
	nodes map[string]*model.Resource
	order []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: map[string]*model.Resource{}}
}

// Add inserts resources. IDs must be unique within the graph.
func (g *Graph) Add(rs ...*model.Resource) error {
	for _, r := range rs {
		if r == nil {
			continue
		}
		if r.ID == "" {
			return fmt.Errorf("resource of kind %s has empty id", r.Kind)
		}
		if _, dup := g.nodes[r.ID]; dup {
			return fmt.Errorf("duplicate resource id %q", r.ID)
		}
		g.nodes[r.ID] = r
		g.order = append(g.order, r.ID)
	}
	return nil
}

// Get returns the resource with id, if any.
func (g *Graph) Get(id string) (*model.Resource, bool) {
	r, ok := g.nodes[id]
	return r, ok
}

// Len returns the number of resources.
func (g *Graph) Len() int { return len(g.order) }

// Resources returns resources in insertion order.
func (g *Graph) Resources() []*model.Resource {
	out := make([]*model.Resource, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Validate checks that every dependency exists and that the graph is acyclic.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return fmt.Errorf("resource %q depends on unknown resource %q", id, dep)
			}
		}
	}
	return g.DetectCycles()
}

// DetectCycles performs cycle detection using DFS and reports one cycle path.
func (g *Graph) DetectCycles() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = grey
		stack = append(stack, id)
		if r, ok := g.nodes[id]; ok {
			for _, dep := range r.DependsOn {
				switch color[dep] {
				case grey:
					start := 0
					for i, s := range stack {
						if s == dep {
							start = i
							break
						}
					}
					path := append(append([]string{}, stack[start:]...), dep)
					return fmt.Errorf("dependency cycle: %s", strings.Join(path, " -> "))
				case white:
					if err := visit(dep); err != nil {
						return err
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}
	for _, id := range g.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sort returns resources in dependency order using Kahn's algorithm. Among
// resources that are ready at the same time, insertion order wins, so the result
// is deterministic for a given declaration sequence.
func (g *Graph) Sort() ([]*model.Resource, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(g.order))
	for i, id := range g.order {
		index[id] = i
	}
	inDegree := make([]int, len(g.order))
	dependents := make([][]int, len(g.order))
	for i, id := range g.order {
		seen := map[string]bool{}
		for _, dep := range g.nodes[id].DependsOn {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			j := index[dep]
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	// ready is kept sorted by insertion index.
	var ready []int
	for i := range g.order {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sorted := make([]*model.Resource, 0, len(g.order))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		sorted = append(sorted, g.nodes[g.order[cur]])
		for _, d := range dependents[cur] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = insertSorted(ready, d)
			}
		}
	}
	if len(sorted) != len(g.order) {
		return nil, fmt.Errorf("failed to topologically sort: possible cycle detected")
	}
	return sorted, nil
}

func insertSorted(s []int, v int) []int {
	i := len(s)
	for i > 0 && s[i-1] > v {
		i--
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
