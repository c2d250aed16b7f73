package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycleDetected is returned when a topological ordering is impossible
// because the graph contains at least one cycle.
var ErrCycleDetected = errors.New("dependency cycle detected")

type Vertex interface {
	GetId() string
}

type AdjacencyMatrix map[string]map[string]bool

// Graph is a directed graph. It remembers the order in which vertices were
// added, and ordering operations use that order to break ties, so outputs are
// deterministic across runs of the same build
type Graph[V Vertex] struct {
	verticesById map[string]V
	// rankById is the insertion rank of each vertex. A vertex keeps its
	// original rank if it is re-added
	rankById map[string]int
	nextRank int
	edges    AdjacencyMatrix
}

func NewGraph[V Vertex]() *Graph[V] {
	return &Graph[V]{
		verticesById: make(map[string]V),
		rankById:     make(map[string]int),
		edges:        make(AdjacencyMatrix),
	}
}

// AddVertex adds a vertex to the graph.
// If the vertex already exists, it will override it and keep the edges
func (g *Graph[V]) AddVertex(v V) {
	if _, hasRank := g.rankById[v.GetId()]; !hasRank {
		g.rankById[v.GetId()] = g.nextRank
		g.nextRank++
	}
	g.verticesById[v.GetId()] = v
	if g.edges[v.GetId()] == nil {
		g.edges[v.GetId()] = make(map[string]bool)
	}
}

// AddEdge adds an edge from sourceId to targetId, i.e., source must precede
// target in any ordering. If either vertex doesn't exist, it will error
func (g *Graph[V]) AddEdge(sourceId, targetId string) error {
	if !g.HasVertexWithId(sourceId) {
		return fmt.Errorf("source %s does not exist", sourceId)
	}
	if !g.HasVertexWithId(targetId) {
		return fmt.Errorf("target %s does not exist", targetId)
	}
	g.edges[sourceId][targetId] = true

	return nil
}

func (g *Graph[V]) GetVertex(id string) V {
	return g.verticesById[id]
}

func (g *Graph[V]) HasVertexWithId(id string) bool {
	_, hasVertex := g.verticesById[id]
	return hasVertex
}

func (g *Graph[V]) Copy() *Graph[V] {
	verticesById := make(map[string]V)
	for id, v := range g.verticesById {
		verticesById[id] = v
	}

	rankById := make(map[string]int)
	for id, rank := range g.rankById {
		rankById[id] = rank
	}

	edges := make(AdjacencyMatrix)
	for source, adjacentEdgesMap := range g.edges {
		edges[source] = make(map[string]bool)
		for target, isAdjacent := range adjacentEdgesMap {
			edges[source][target] = isAdjacent
		}
	}

	return &Graph[V]{
		verticesById: verticesById,
		rankById:     rankById,
		nextRank:     g.nextRank,
		edges:        edges,
	}
}

// incomingEdgeCounts returns the number of incoming edges for every vertex
func (g *Graph[V]) incomingEdgeCounts() map[string]int {
	counts := make(map[string]int)
	for vertexId := range g.verticesById {
		counts[vertexId] = 0
	}
	for _, adjacentEdgesMap := range g.edges {
		for target, isAdjacent := range adjacentEdgesMap {
			if isAdjacent {
				counts[target]++
			}
		}
	}
	return counts
}

// sortByRank orders vertex ids by their insertion rank
func (g *Graph[V]) sortByRank(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return g.rankById[ids[i]] < g.rankById[ids[j]]
	})
}

func (g *Graph[V]) cycleErr(incomingEdgeCountByVertex map[string]int) error {
	var unresolved []string
	for id, count := range incomingEdgeCountByVertex {
		if count > 0 {
			unresolved = append(unresolved, id)
		}
	}
	g.sortByRank(unresolved)
	return fmt.Errorf("%w: unresolved vertices %v", ErrCycleDetected, unresolved)
}

// TopologicallySort returns a topological sort of the graph. Ties between
// vertices that could be emitted at the same time are broken by insertion
// rank, so the output is deterministic
func (g *Graph[V]) TopologicallySort() ([]V, error) {
	// This uses mutation. Copy the graph
	graph := g.Copy()

	// The strategy of this algorithm:
	// 1. Count the number of incoming edges to each vertex
	// 2. Remove the earliest-added source and append it to the output
	// 3. Decrement the number of incoming edges of each vertex adjacent to it
	// 4. Repeat 2-3 until the graph is empty
	incomingEdgeCountByVertex := graph.incomingEdgeCounts()

	var output []V
	for len(graph.verticesById) > 0 {
		var sources []string
		for sourceId, incomingEdgeCount := range incomingEdgeCountByVertex {
			if incomingEdgeCount == 0 {
				sources = append(sources, sourceId)
			}
		}
		if len(sources) == 0 {
			return nil, g.cycleErr(incomingEdgeCountByVertex)
		}
		graph.sortByRank(sources)
		source := sources[0]

		output = append(output, graph.GetVertex(source))

		for target, hasEdge := range graph.edges[source] {
			if hasEdge {
				incomingEdgeCountByVertex[target]--
			}
		}
		delete(graph.verticesById, source)
		delete(graph.edges, source)
		delete(incomingEdgeCountByVertex, source)
	}

	return output, nil
}

// Waves partitions the graph into levels: vertices in wave N depend only on
// vertices in waves < N, so all vertices within a wave are mutually
// independent and can be processed concurrently. Vertices within a wave are
// ordered by insertion rank. The concatenation of the waves is itself a valid
// topological sort
func (g *Graph[V]) Waves() ([][]V, error) {
	incomingEdgeCountByVertex := g.incomingEdgeCounts()

	remaining := len(g.verticesById)
	var frontier []string
	for vertexId, count := range incomingEdgeCountByVertex {
		if count == 0 {
			frontier = append(frontier, vertexId)
		}
	}

	var waves [][]V
	for len(frontier) > 0 {
		g.sortByRank(frontier)
		wave := make([]V, len(frontier))
		for i, id := range frontier {
			wave[i] = g.GetVertex(id)
		}
		waves = append(waves, wave)
		remaining -= len(frontier)

		var next []string
		for _, id := range frontier {
			for target, hasEdge := range g.edges[id] {
				if hasEdge {
					incomingEdgeCountByVertex[target]--
					if incomingEdgeCountByVertex[target] == 0 {
						next = append(next, target)
					}
				}
			}
		}
		frontier = next
	}

	if remaining > 0 {
		return nil, g.cycleErr(incomingEdgeCountByVertex)
	}

	return waves, nil
}
