package supervisor

import (
	"fmt"
	"sort"

	"github.com/ionflux/datacenter"
)

// topoSort orders components so every dependency precedes its dependents,
// using Kahn's algorithm: repeatedly remove a node with in-degree zero.
// A cycle leaves nodes with nonzero in-degree after the queue drains, which
// is reported as a fatal configuration error rather than silently ignored.
func topoSort(components map[string]*component) ([]string, error) {
	inDegree := make(map[string]int, len(components))
	dependents := make(map[string][]string, len(components))

	for name := range components {
		inDegree[name] = 0
	}
	for name, c := range components {
		for _, dep := range c.deps {
			if _, ok := components[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on unregistered component %s", datacenter.ErrComponentNotFound, name, dep)
			}
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	// Deterministic order for otherwise-unordered roots keeps Start logs
	// reproducible between runs.
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		order = append(order, next)

		children := append([]string(nil), dependents[next]...)
		sort.Strings(children)
		for _, child := range children {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(components) {
		return nil, datacenter.ErrCircularDependency
	}
	return order, nil
}
