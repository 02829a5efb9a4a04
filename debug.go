package beans

import (
	"fmt"
	"io"
	"sort"
)

// ServiceInfo describes one bean's position in the dependency graph for
// diagnostic output, most useful when tracking down a
// CurrentlyInCreationError.
//
// Grounded on danpasecinic/needle's debug.go ServiceInfo/GraphInfo.
type ServiceInfo struct {
	Name         string
	Dependencies []string
	Dependents   []string
	Instantiated bool
	Scope        string
}

// Graph returns diagnostic info for every registered bean definition,
// sorted by name.
func (c *Container) Graph() ([]ServiceInfo, error) {
	defs, err := c.definitions.AllMerged()
	if err != nil {
		return nil, err
	}

	out := make([]ServiceInfo, 0, len(defs))
	for _, def := range defs {
		_, instantiated := c.singletons.Get(def.Name)
		out = append(out, ServiceInfo{
			Name:         def.Name,
			Dependencies: append([]string(nil), def.DependsOn...),
			Dependents:   c.singletons.DependentsOf(def.Name),
			Instantiated: instantiated,
			Scope:        def.effectiveScope(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PrintGraph writes a human-readable dependency graph to w.
func (c *Container) PrintGraph(w io.Writer) error {
	infos, err := c.Graph()
	if err != nil {
		return err
	}
	for _, info := range infos {
		status := "pending"
		if info.Instantiated {
			status = "created"
		}
		fmt.Fprintf(w, "%s [%s, %s]\n", info.Name, info.Scope, status)
		for _, dep := range info.Dependencies {
			fmt.Fprintf(w, "  -> %s\n", dep)
		}
	}
	return nil
}
