// Package worldmodel holds the directed graph of application states the
// agent plans over. Nodes are named screens; edges are the actions that move
// between them. A model is built once and read-only afterwards, so BFS needs
// no locking.
package worldmodel

import (
	"fmt"
	"sort"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// Transition is one outgoing edge: performing Action moves to Target.
type Transition struct {
	Action string
	Target string
}

// Step is one edge along a discovered path.
type Step struct {
	From   string
	Action string
	To     string
}

// Model is the immutable state graph. Construct through a Builder.
type Model struct {
	edges map[string][]Transition
}

// Builder accumulates states and transitions for a Model.
type Builder struct {
	edges map[string][]Transition
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{edges: make(map[string][]Transition)}
}

// AddState registers a state with no outgoing edges. Adding a transition
// registers its endpoints implicitly, so this is only needed for sinks.
func (b *Builder) AddState(name string) *Builder {
	if _, ok := b.edges[name]; !ok {
		b.edges[name] = nil
	}
	return b
}

// AddTransition registers an edge from one state to another under the given
// action label.
func (b *Builder) AddTransition(from, action, to string) *Builder {
	b.AddState(from)
	b.AddState(to)
	b.edges[from] = append(b.edges[from], Transition{Action: action, Target: to})
	return b
}

// Build freezes the accumulated graph. The Builder must not be reused.
func (b *Builder) Build() *Model {
	m := &Model{edges: b.edges}
	b.edges = nil
	return m
}

// HasState reports whether the model knows the named state.
func (m *Model) HasState(name string) bool {
	_, ok := m.edges[name]
	return ok
}

// Transitions returns a copy of the outgoing edges of a state.
func (m *Model) Transitions(state string) []Transition {
	src := m.edges[state]
	out := make([]Transition, len(src))
	copy(out, src)
	return out
}

// States reports the number of states in the model.
func (m *Model) States() int {
	return len(m.edges)
}

// StateNames returns every state name in sorted order.
func (m *Model) StateNames() []string {
	names := make([]string, 0, len(m.edges))
	for name := range m.edges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindPath runs breadth-first search from start to target and returns the
// action sequence with the minimum number of edges. A visited set plus the
// maxExpansions cap guarantees termination on cyclic graphs.
//
// start == target yields an empty path. An unknown state, an exhausted
// expansion budget, or a genuinely disconnected target all return
// schemas.ErrUnreachable.
func (m *Model) FindPath(start, target string, maxExpansions int) ([]Step, error) {
	if !m.HasState(start) {
		return nil, fmt.Errorf("%w: unknown start state %q", schemas.ErrUnreachable, start)
	}
	if !m.HasState(target) {
		return nil, fmt.Errorf("%w: unknown target state %q", schemas.ErrUnreachable, target)
	}
	if start == target {
		return nil, nil
	}

	type node struct {
		state string
		path  []Step
	}

	visited := map[string]bool{start: true}
	queue := []node{{state: start}}
	expansions := 0

	for len(queue) > 0 {
		if expansions >= maxExpansions {
			return nil, fmt.Errorf("%w: expansion budget of %d exhausted before reaching %q",
				schemas.ErrUnreachable, maxExpansions, target)
		}
		expansions++

		current := queue[0]
		queue = queue[1:]

		for _, t := range m.edges[current.state] {
			if visited[t.Target] {
				continue
			}
			path := make([]Step, len(current.path), len(current.path)+1)
			copy(path, current.path)
			path = append(path, Step{From: current.state, Action: t.Action, To: t.Target})

			if t.Target == target {
				return path, nil
			}
			visited[t.Target] = true
			queue = append(queue, node{state: t.Target, path: path})
		}
	}

	return nil, fmt.Errorf("%w: no path from %q to %q", schemas.ErrUnreachable, start, target)
}

// Default returns the built-in e-commerce state graph the agent plans over
// out of the box. It deliberately contains a cycle (Dashboard back to Home)
// so planning always exercises the visited set.
func Default() *Model {
	return NewBuilder().
		AddTransition("Home", "Click the login button", "Login").
		AddTransition("Login", "Submit the login form", "Dashboard").
		AddTransition("Dashboard", "Browse the catalog", "Home").
		AddTransition("Home", "Click a product card", "Product").
		AddTransition("Product", "Add the item to the cart", "Cart").
		AddTransition("Cart", "Proceed to checkout", "Checkout").
		AddTransition("Checkout", "Confirm the purchase", "Confirmation").
		Build()
}
