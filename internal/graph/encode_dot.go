package graph

import (
	"fmt"
	"io"
)

// dotBuilder wraps an io.Writer and writes a graph in DOT format
type dotBuilder struct {
	io.Writer
}

// init initializes a graph
func (b *dotBuilder) init() error {
	_, err := fmt.Fprintln(b, `digraph G {`)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(b, `node [fontname="Helvetica,Arial,sans-serif"]`)
	if err != nil {
		return err
	}

	return nil
}

// finish closes the opening curly bracket of the current graph
func (b *dotBuilder) finish() error {
	_, err := fmt.Fprintln(b, "}")
	return err
}

// addNode adds a node to the graph
func (b *dotBuilder) addNode(id int, label string) error {
	attr := fmt.Sprintf(`label=%q`, label)
	_, err := fmt.Fprintf(b, "n%d [%s]\n", id, attr)
	return err
}

// addEdge adds an edge to the graph
func (b *dotBuilder) addEdge(from, to int) error {
	_, err := fmt.Fprintf(b, "n%d -> n%d\n", from, to)
	return err
}

// EncodeDOT encodes a graph in DOT format to enable visualization of the
// graph. Vertices are written in insertion order and edges in vertex order,
// so the output is deterministic
func EncodeDOT[V Vertex](g *Graph[V], w io.Writer) error {
	builder := &dotBuilder{w}
	if err := builder.init(); err != nil {
		return err
	}

	vertexIds := make([]string, 0, len(g.verticesById))
	for k := range g.verticesById {
		vertexIds = append(vertexIds, k)
	}
	g.sortByRank(vertexIds)

	nodeIdsByVertex := make(map[string]int)
	for i, vid := range vertexIds {
		if err := builder.addNode(i, vid); err != nil {
			return err
		}
		nodeIdsByVertex[vid] = i
	}

	for _, source := range vertexIds {
		adjacentEdgesMap := g.edges[source]
		var targets []string
		for target, isAdjacent := range adjacentEdgesMap {
			if isAdjacent {
				targets = append(targets, target)
			}
		}
		g.sortByRank(targets)
		for _, target := range targets {
			if err := builder.addEdge(nodeIdsByVertex[source], nodeIdsByVertex[target]); err != nil {
				return err
			}
		}
	}

	return builder.finish()
}
