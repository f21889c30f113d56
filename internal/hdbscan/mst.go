package hdbscan

import (
	"context"
	"math"
	"sort"

	"github.com/hupe1980/omacluster/distance"
)

type edge struct {
	a, b   int
	weight float64
}

// linkageRow is one merge of the single linkage dendrogram. Node ids below n
// are points; merge k creates node n+k.
type linkageRow struct {
	left, right int
	dist        float64
	size        int
}

// minimumSpanningTree builds the MST of the mutual reachability graph with
// Prim's algorithm on the implicit dense graph. Ties resolve to the lowest
// point index.
func minimumSpanningTree(ctx context.Context, points [][]float64, core []float64, dist distance.Func) ([]edge, error) {
	n := len(points)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]edge, 0, n-1)
	current := 0
	inTree[0] = true

	for len(edges) < n-1 {
		if len(edges)%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		next := -1
		nextWeight := math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := max(dist(points[current], points[j]), core[current], core[j])
			if d < best[j] {
				best[j] = d
				from[j] = current
			}
			if next == -1 || best[j] < nextWeight {
				next = j
				nextWeight = best[j]
			}
		}

		inTree[next] = true
		edges = append(edges, edge{a: from[next], b: next, weight: nextWeight})
		current = next
	}

	return edges, nil
}

// singleLinkage turns MST edges into a dendrogram.
func singleLinkage(edges []edge, n int) []linkageRow {
	sorted := make([]edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].weight < sorted[j].weight
	})

	parent := make([]int, 2*n-1)
	size := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = -1
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}

	find := func(x int) int {
		root := x
		for parent[root] != -1 {
			root = parent[root]
		}
		for parent[x] != -1 {
			next := parent[x]
			parent[x] = root
			x = next
		}
		return root
	}

	rows := make([]linkageRow, 0, n-1)
	node := n
	for _, e := range sorted {
		ra, rb := find(e.a), find(e.b)
		rows = append(rows, linkageRow{
			left:  ra,
			right: rb,
			dist:  e.weight,
			size:  size[ra] + size[rb],
		})
		parent[ra] = node
		parent[rb] = node
		size[node] = size[ra] + size[rb]
		node++
	}
	return rows
}
