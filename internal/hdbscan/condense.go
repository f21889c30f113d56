package hdbscan

import (
	"slices"
)

// maxLambda stands in for 1/0 when duplicate points merge at distance zero,
// keeping stabilities finite.
const maxLambda = 1e300

type condensedEntry struct {
	parent    int
	child     int
	lambda    float64
	childSize int
}

// condensedTree is the cluster hierarchy after points falling out of
// clusters smaller than the minimum cluster size are attached to their
// parent. Cluster ids start at n (the root); ids below n are points.
type condensedTree struct {
	n       int
	entries []condensedEntry
	next    int // one past the highest cluster id
}

func lambdaOf(d float64) float64 {
	if d <= 0 {
		return maxLambda
	}
	return min(1/d, maxLambda)
}

func condense(rows []linkageRow, n, minClusterSize int) *condensedTree {
	root := 2*n - 2
	relabel := make([]int, 2*n-1)
	ignore := make([]bool, 2*n-1)
	relabel[root] = n
	next := n + 1

	sizeOf := func(node int) int {
		if node < n {
			return 1
		}
		return rows[node-n].size
	}

	var entries []condensedEntry
	fallOut := func(parent, node int, lambda float64) {
		for _, sub := range bfs(rows, n, node) {
			if sub < n {
				entries = append(entries, condensedEntry{parent: parent, child: sub, lambda: lambda, childSize: 1})
			}
			ignore[sub] = true
		}
	}

	for _, node := range bfs(rows, n, root) {
		if node < n || ignore[node] {
			continue
		}

		row := rows[node-n]
		lambda := lambdaOf(row.dist)
		leftSize, rightSize := sizeOf(row.left), sizeOf(row.right)
		parent := relabel[node]

		switch {
		case leftSize >= minClusterSize && rightSize >= minClusterSize:
			relabel[row.left] = next
			entries = append(entries, condensedEntry{parent: parent, child: next, lambda: lambda, childSize: leftSize})
			next++
			relabel[row.right] = next
			entries = append(entries, condensedEntry{parent: parent, child: next, lambda: lambda, childSize: rightSize})
			next++
		case leftSize < minClusterSize && rightSize < minClusterSize:
			fallOut(parent, row.left, lambda)
			fallOut(parent, row.right, lambda)
		case leftSize < minClusterSize:
			relabel[row.right] = parent
			fallOut(parent, row.left, lambda)
		default:
			relabel[row.left] = parent
			fallOut(parent, row.right, lambda)
		}
	}

	return &condensedTree{n: n, entries: entries, next: next}
}

// bfs lists node and all of its dendrogram descendants breadth first.
func bfs(rows []linkageRow, n, node int) []int {
	out := []int{node}
	for i := 0; i < len(out); i++ {
		if v := out[i]; v >= n {
			out = append(out, rows[v-n].left, rows[v-n].right)
		}
	}
	return out
}

// stabilities computes the excess of mass of every cluster id.
func (t *condensedTree) stabilities() []float64 {
	birth := make([]float64, t.next)
	for _, e := range t.entries {
		if e.child >= t.n {
			birth[e.child] = e.lambda
		}
	}

	stability := make([]float64, t.next)
	for _, e := range t.entries {
		stability[e.parent] += (e.lambda - birth[e.parent]) * float64(e.childSize)
	}
	return stability
}

// children maps every cluster id to its child cluster ids.
func (t *condensedTree) children() [][]int {
	out := make([][]int, t.next)
	for _, e := range t.entries {
		if e.child >= t.n {
			out[e.parent] = append(out[e.parent], e.child)
		}
	}
	return out
}

// selectClusters applies excess-of-mass selection, excluding the root, and
// returns the selected cluster ids in ascending order.
func (t *condensedTree) selectClusters() []int {
	stability := t.stabilities()
	children := t.children()

	isCluster := make([]bool, t.next)
	for c := t.n + 1; c < t.next; c++ {
		isCluster[c] = true
	}

	// Children always carry higher ids than their parent.
	for c := t.next - 1; c > t.n; c-- {
		var subtree float64
		for _, child := range children[c] {
			subtree += stability[child]
		}
		if subtree > stability[c] {
			isCluster[c] = false
			stability[c] = subtree
			continue
		}
		queue := slices.Clone(children[c])
		for i := 0; i < len(queue); i++ {
			isCluster[queue[i]] = false
			queue = append(queue, children[queue[i]]...)
		}
	}

	var selected []int
	for c := t.n + 1; c < t.next; c++ {
		if isCluster[c] {
			selected = append(selected, c)
		}
	}
	return selected
}

// labels assigns each point the label of its nearest selected ancestor.
func (t *condensedTree) labels(selected []int) []int {
	label := make(map[int]int, len(selected))
	for i, c := range selected {
		label[c] = i
	}

	parent := make([]int, t.next)
	for i := range parent {
		parent[i] = i
	}
	for _, e := range t.entries {
		if _, ok := label[e.child]; !ok {
			parent[e.child] = e.parent
		}
	}

	find := func(x int) int {
		for parent[x] != x {
			x = parent[x]
		}
		return x
	}

	out := make([]int, t.n)
	for i := range out {
		if l, ok := label[find(i)]; ok {
			out[i] = l
		} else {
			out[i] = Noise
		}
	}
	return out
}
