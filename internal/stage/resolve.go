package stage

import (
	"log/slog"
	"slices"

	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/util/sets"
)

// Resolve orders the stages of set so that every present name in a
// stage's Before list comes after it and every present name in its After
// list comes before it. Among stages free to run, the smallest name goes
// first. References to absent stages are logged and ignored. A cycle
// returns an error wrapping ErrCycle and no partial order.
func Resolve(set *Set) ([]Descriptor, error) {
	if set.Len() == 0 {
		return []Descriptor{}, nil
	}

	graph := make(map[string]sets.Set[string], set.Len())
	inDegree := make(map[string]int, set.Len())
	for _, name := range set.Names() {
		graph[name] = sets.New[string]()
		inDegree[name] = 0
	}

	addEdge := func(from, to string) {
		if graph[from].Has(to) {
			return
		}
		graph[from].Add(to)
		inDegree[to]++
	}

	for _, d := range set.Sorted() {
		for _, later := range sets.Sorted(d.Before) {
			if !set.Has(later) {
				warnMissing(set.Kind(), d.Name, "before", later)
				continue
			}
			addEdge(d.Name, later)
		}
		for _, earlier := range sets.Sorted(d.After) {
			if !set.Has(earlier) {
				warnMissing(set.Kind(), d.Name, "after", earlier)
				continue
			}
			addEdge(earlier, d.Name)
		}
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	result := make([]Descriptor, 0, set.Len())
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]

		d, _ := set.Get(current)
		result = append(result, d)

		for _, next := range sets.Sorted(graph[current]) {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				slices.Sort(ready)
			}
		}
	}

	if len(result) != set.Len() {
		var remaining []string
		for name, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, name)
			}
		}
		slices.Sort(remaining)
		return nil, cycleError(set.Kind(), remaining)
	}
	return result, nil
}

func warnMissing(kind Kind, name, field, target string) {
	slog.Warn("Ordering constraint names an unknown stage",
		logfields.Kind(string(kind)),
		logfields.Stage(name),
		slog.String("field", field),
		slog.String("target", target))
}

// Names extracts the names of ordered descriptors.
func Names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}
