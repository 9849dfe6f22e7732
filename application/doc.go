// Package application coordinates chain-reduce computations over a
// distributed DataFrame. Every node of a cluster runs the same program: it
// loads its own partition, then calls PMap with the same namespace and Rower
// as every other node. Each node maps over its partition locally, and the
// partial results flow from the highest node id down to node 1, which is the
// only node to receive the final result.
package application
