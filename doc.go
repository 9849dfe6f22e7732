// Package liquid contains the core vocabulary of Liquid, a framework for running
// row-visiting computations over a dataset partitioned across a fixed cluster of
// nodes. This root package defines the data types shared by every other package:
// the DataType of a column and the Data union carried by a single cell.
//
// Liquid is organized as follows:
//   - schema describes the shape of a dataset
//   - dataframe stores columnar data and runs Rowers over it, locally and in parallel
//   - kv is the partition store contract consumed by an Application
//   - cluster implements kv over gRPC
//   - application drives the chain-reduce protocol across nodes
package liquid
