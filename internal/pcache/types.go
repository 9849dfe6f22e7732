package pcache

import (
	"github.com/go-sif/liquid/dataframe"
)

// PartitionCache is a bounded cache for partitions fetched from other nodes
type PartitionCache interface {
	Add(key string, value *dataframe.DataFrame) error
	Get(key string) (value *dataframe.DataFrame, ok bool, err error) // leaves the partition in the cache
	CurrentSize() int
	Resize(frac float64) // resize by a fraction RELATIVE TO THE CURRENT NUMBER OF ITEMS IN THE CACHE
}
