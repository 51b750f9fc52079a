package opt

import "fmt"

// IndexManager maps problem nodes to solver indices. Regular nodes come first in
// node order, then one start index and one end index per vehicle.
type IndexManager struct {
	numNodes    int
	numVehicles int
	indexToNode []int
	nodeToIndex []int64
	starts      []int64
	ends        []int64
}

// NewIndexManager creates a manager where every vehicle starts and ends at depot.
func NewIndexManager(numNodes, numVehicles, depot int) (*IndexManager, error) {
	starts := make([]int, numVehicles)
	ends := make([]int, numVehicles)
	for v := range starts {
		starts[v] = depot
		ends[v] = depot
	}
	return NewIndexManagerWithDepots(numNodes, numVehicles, starts, ends)
}

// NewIndexManagerWithDepots creates a manager with per-vehicle start and end nodes.
func NewIndexManagerWithDepots(numNodes, numVehicles int, starts, ends []int) (*IndexManager, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("opt: numNodes must be > 0, got %d", numNodes)
	}
	if numVehicles <= 0 {
		return nil, fmt.Errorf("opt: numVehicles must be > 0, got %d", numVehicles)
	}
	if len(starts) != numVehicles || len(ends) != numVehicles {
		return nil, fmt.Errorf("opt: need %d starts and ends, got %d/%d", numVehicles, len(starts), len(ends))
	}
	endpoint := make([]bool, numNodes)
	for v := 0; v < numVehicles; v++ {
		for _, n := range []int{starts[v], ends[v]} {
			if n < 0 || n >= numNodes {
				return nil, fmt.Errorf("opt: vehicle %d endpoint %d out of range", v, n)
			}
			endpoint[n] = true
		}
	}
	m := &IndexManager{
		numNodes:    numNodes,
		numVehicles: numVehicles,
		nodeToIndex: make([]int64, numNodes),
		starts:      make([]int64, numVehicles),
		ends:        make([]int64, numVehicles),
	}
	for n := 0; n < numNodes; n++ {
		m.nodeToIndex[n] = -1
		if !endpoint[n] {
			m.nodeToIndex[n] = int64(len(m.indexToNode))
			m.indexToNode = append(m.indexToNode, n)
		}
	}
	for v := 0; v < numVehicles; v++ {
		m.starts[v] = int64(len(m.indexToNode))
		m.indexToNode = append(m.indexToNode, starts[v])
		if m.nodeToIndex[starts[v]] < 0 {
			m.nodeToIndex[starts[v]] = m.starts[v]
		}
	}
	for v := 0; v < numVehicles; v++ {
		m.ends[v] = int64(len(m.indexToNode))
		m.indexToNode = append(m.indexToNode, ends[v])
	}
	return m, nil
}

// IndexToNode returns the node behind a solver index.
func (m *IndexManager) IndexToNode(index int64) int { return m.indexToNode[index] }

// NodeToIndex returns the solver index of a node; for endpoint nodes it is the
// start index of the first vehicle using it.
func (m *IndexManager) NodeToIndex(node int) int64 { return m.nodeToIndex[node] }

func (m *IndexManager) NumNodes() int { return m.numNodes }
func (m *IndexManager) NumVehicles() int { return m.numVehicles }
func (m *IndexManager) NumIndices() int { return len(m.indexToNode) }
