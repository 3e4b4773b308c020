// File: dispatcher/routing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Routing table: a fixed array of nodes, each binding one slot to one worker.
// A hash is mapped onto a slot by multiply-high scaling:
//
//	slot = (uint64(hash) * size) >> 32
//
// which covers [0, size) without division or branches. The table is built
// row by row and each row binds every worker once, so slot k belongs to
// worker k mod workerCount and the replicas of a worker are spread evenly
// over the hash space.

package dispatcher

import "github.com/ryntric/affinity-dispatcher/internal/concurrency"

// routingNode is immutable after construction.
type routingNode[T any] struct {
	index  int // worker index
	worker *concurrency.Worker[T]
}

type routingTable[T any] struct {
	nodes []routingNode[T]
	size  uint64
}

func newRoutingTable[T any](workers []*concurrency.Worker[T], nodesPerWorker int) *routingTable[T] {
	nodes := make([]routingNode[T], 0, len(workers)*nodesPerWorker)
	for row := 0; row < nodesPerWorker; row++ {
		for i, w := range workers {
			nodes = append(nodes, routingNode[T]{index: i, worker: w})
		}
	}
	return &routingTable[T]{nodes: nodes, size: uint64(len(nodes))}
}

// slot maps hash onto [0, size).
func (t *routingTable[T]) slot(hash uint32) uint64 {
	return (uint64(hash) * t.size) >> 32
}

func (t *routingTable[T]) node(hash uint32) *routingNode[T] {
	return &t.nodes[t.slot(hash)]
}
