// Package optimizer chooses a join order for a set of scanned relations
// using the statistics gathered by pkg/optimizer/statistics.
package optimizer

import (
	"math"
	"storemy/pkg/primitives"
)

// JoinNode is one relation participating in the join, carrying the
// cardinality and full-scan cost pkg/optimizer/statistics computed
// for it.
type JoinNode struct {
	TableID     primitives.TableID
	Cardinality int64
	ScanCost    float64
}

// edgeKey identifies an unordered pair of node indices.
type edgeKey struct{ a, b int }

func makeEdgeKey(i, j int) edgeKey {
	if i > j {
		i, j = j, i
	}
	return edgeKey{i, j}
}

// JoinOrderPlanner finds a left-deep join order over a fixed set of
// relations by subset-enumeration dynamic programming, minimizing
// Σ (outer_rows × inner_scan_cost) across the plan.
type JoinOrderPlanner struct {
	nodes       []JoinNode
	selectivity map[edgeKey]float64
}

func NewJoinOrderPlanner(nodes []JoinNode) *JoinOrderPlanner {
	return &JoinOrderPlanner{
		nodes:       nodes,
		selectivity: make(map[edgeKey]float64),
	}
}

// SetSelectivity records the estimated selectivity of the join
// predicate connecting relations i and j (indices into the node slice
// passed to NewJoinOrderPlanner). Relations with no recorded
// selectivity are only joined by cartesian product, and only when no
// connected alternative exists for their subset.
func (p *JoinOrderPlanner) SetSelectivity(i, j int, selectivity float64) {
	p.selectivity[makeEdgeKey(i, j)] = selectivity
}

func (p *JoinOrderPlanner) connected(mask uint32, j int) (float64, bool) {
	best := 0.0
	found := false
	for i := 0; i < len(p.nodes); i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if sel, ok := p.selectivity[makeEdgeKey(i, j)]; ok {
			if !found || sel < best {
				best = sel
				found = true
			}
		}
	}
	return best, found
}

type dpEntry struct {
	cost  float64
	card  int64
	order []int
}

// Plan runs the DP and returns the chosen left-deep join order as a
// permutation of node indices, along with its total estimated cost.
func (p *JoinOrderPlanner) Plan() ([]int, float64) {
	n := len(p.nodes)
	if n == 0 {
		return nil, 0
	}
	if n == 1 {
		return []int{0}, p.nodes[0].ScanCost
	}

	full := uint32(1)<<uint(n) - 1
	dp := make(map[uint32]dpEntry, 1<<uint(n))

	for i := 0; i < n; i++ {
		mask := uint32(1) << uint(i)
		dp[mask] = dpEntry{
			cost:  p.nodes[i].ScanCost,
			card:  p.nodes[i].Cardinality,
			order: []int{i},
		}
	}

	for size := 2; size <= n; size++ {
		for mask := uint32(1); mask <= full; mask++ {
			if popcount(mask) != size {
				continue
			}

			var best dpEntry
			bestCost := math.MaxFloat64
			var bestCartesian dpEntry
			bestCartesianCost := math.MaxFloat64

			for j := 0; j < n; j++ {
				bit := uint32(1) << uint(j)
				if mask&bit == 0 {
					continue
				}
				left := mask &^ bit
				if left == 0 {
					continue
				}
				leftEntry, ok := dp[left]
				if !ok {
					continue
				}

				cost := leftEntry.cost + float64(leftEntry.card)*p.nodes[j].ScanCost
				order := append(append([]int{}, leftEntry.order...), j)

				if sel, connected := p.connected(left, j); connected {
					card := int64(math.Round(float64(leftEntry.card) * float64(p.nodes[j].Cardinality) * sel))
					if cost < bestCost {
						bestCost = cost
						best = dpEntry{cost: cost, card: card, order: order}
					}
				} else {
					card := leftEntry.card * p.nodes[j].Cardinality
					if cost < bestCartesianCost {
						bestCartesianCost = cost
						bestCartesian = dpEntry{cost: cost, card: card, order: order}
					}
				}
			}

			if bestCost < math.MaxFloat64 {
				dp[mask] = best
			} else if bestCartesianCost < math.MaxFloat64 {
				dp[mask] = bestCartesian
			}
		}
	}

	result, ok := dp[full]
	if !ok {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order, math.MaxFloat64
	}
	return result.order, result.cost
}

func popcount(mask uint32) int {
	count := 0
	for mask != 0 {
		mask &= mask - 1
		count++
	}
	return count
}
