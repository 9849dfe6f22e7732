package pcache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/go-sif/liquid/codec"
	"github.com/go-sif/liquid/dataframe"
)

// lru is an LRU cache for partitions. The most recently used partitions are
// held as DataFrames, and older ones are held compressed until they fall out
// of the cache entirely.
type lru struct {
	codec                  codec.Codec[*dataframe.DataFrame]
	lock                   sync.Mutex
	pmap                   map[string]*list.Element
	compressedPmap         map[string]*list.Element
	recentUncompressedList *list.List // back is oldest, front is newest
	recentCompressedList   *list.List // back is oldest, front is newest
	maxUncompressed        int
	maxCompressed          int
}

type cachedPartition struct {
	key   string
	value *dataframe.DataFrame
}

type cachedCompressedPartition struct {
	key   string
	value []byte
}

// LRUConfig configures an LRU PartitionCache
type LRUConfig struct {
	Size               int                               // total partitions held, compressed or not
	CompressedFraction float32                           // fraction of Size held compressed
	Codec              codec.Codec[*dataframe.DataFrame] // compresses partitions. Defaults to codec.Default.
}

// NewLRU produces an LRU PartitionCache
func NewLRU(config *LRUConfig) (PartitionCache, error) {
	if config.Size < 1 {
		return nil, fmt.Errorf("LRUConfig.Size %d must be greater than 0", config.Size)
	}
	if config.CompressedFraction < 0 || config.CompressedFraction > 1 {
		return nil, fmt.Errorf("LRUConfig.CompressedFraction %f must be between 0 and 1", config.CompressedFraction)
	}
	c := config.Codec
	if c == nil {
		c = codec.Default[*dataframe.DataFrame]()
	}
	maxUncompressed := int(float32(config.Size) * (1 - config.CompressedFraction))
	if maxUncompressed < 1 {
		maxUncompressed = 1
	}
	return &lru{
		codec:                  c,
		pmap:                   make(map[string]*list.Element),
		compressedPmap:         make(map[string]*list.Element),
		recentUncompressedList: list.New(),
		recentCompressedList:   list.New(),
		maxUncompressed:        maxUncompressed,
		maxCompressed:          config.Size - maxUncompressed,
	}, nil
}

// Add inserts a partition as the most recently used, replacing any partition
// already stored under key
func (c *lru) Add(key string, value *dataframe.DataFrame) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.remove(key)
	c.pmap[key] = c.recentUncompressedList.PushFront(&cachedPartition{key: key, value: value})
	return c.evict()
}

// Get returns the partition stored under key, marking it as the most recently used
func (c *lru) Get(key string) (*dataframe.DataFrame, bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if e, ok := c.pmap[key]; ok {
		c.recentUncompressedList.MoveToFront(e)
		return e.Value.(*cachedPartition).value, true, nil
	}
	ce, ok := c.compressedPmap[key]
	if !ok {
		return nil, false, nil
	}
	delete(c.compressedPmap, key)
	c.recentCompressedList.Remove(ce)
	value, err := c.codec.Decode(ce.Value.(*cachedCompressedPartition).value)
	if err != nil {
		return nil, false, fmt.Errorf("unable to decompress cached partition %s: %w", key, err)
	}
	c.pmap[key] = c.recentUncompressedList.PushFront(&cachedPartition{key: key, value: value})
	return value, true, c.evict()
}

// CurrentSize returns the number of partitions in the cache
func (c *lru) CurrentSize() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pmap) + len(c.compressedPmap)
}

// Resize scales both tiers of the cache by frac of the number of partitions
// they currently hold, evicting the oldest partitions if the cache shrinks
func (c *lru) Resize(frac float64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.maxUncompressed = int(frac * float64(c.recentUncompressedList.Len()))
	if c.maxUncompressed < 1 {
		c.maxUncompressed = 1
	}
	c.maxCompressed = int(frac * float64(c.recentCompressedList.Len()))
	// shrinking only drops partitions, so there is nothing to encode
	for c.recentUncompressedList.Len() > c.maxUncompressed {
		e := c.recentUncompressedList.Back()
		c.recentUncompressedList.Remove(e)
		delete(c.pmap, e.Value.(*cachedPartition).key)
	}
	c.trimCompressed()
}

func (c *lru) remove(key string) {
	if e, ok := c.pmap[key]; ok {
		delete(c.pmap, key)
		c.recentUncompressedList.Remove(e)
	}
	if e, ok := c.compressedPmap[key]; ok {
		delete(c.compressedPmap, key)
		c.recentCompressedList.Remove(e)
	}
}

// evict moves the oldest uncompressed partitions into the compressed tier,
// and drops the oldest compressed partitions, until both tiers fit. The
// caller must hold the lock.
func (c *lru) evict() error {
	for c.recentUncompressedList.Len() > c.maxUncompressed {
		e := c.recentUncompressedList.Back()
		c.recentUncompressedList.Remove(e)
		cp := e.Value.(*cachedPartition)
		delete(c.pmap, cp.key)
		if c.maxCompressed == 0 {
			continue
		}
		data, err := c.codec.Encode(cp.value)
		if err != nil {
			return fmt.Errorf("unable to compress partition %s: %w", cp.key, err)
		}
		c.compressedPmap[cp.key] = c.recentCompressedList.PushFront(&cachedCompressedPartition{key: cp.key, value: data})
	}
	c.trimCompressed()
	return nil
}

func (c *lru) trimCompressed() {
	for c.recentCompressedList.Len() > c.maxCompressed {
		e := c.recentCompressedList.Back()
		c.recentCompressedList.Remove(e)
		delete(c.compressedPmap, e.Value.(*cachedCompressedPartition).key)
	}
}
