package stats

import (
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

const statisticRollingWindows = 5

// RoundStatistics contains statistics about the chain-reduce rounds run by a node
type RoundStatistics struct {
	lock                 sync.Mutex
	startTime            time.Time
	roundsCompleted      int64
	rowsProcessed        int64
	blobsSent            int64
	blobsReceived        int64
	recentMapRuntimes    []time.Duration // for rolling average of recent local map times
	recentReduceRuntimes []time.Duration // for rolling average of recent time spent waiting on, joining and forwarding blobs
	recentRuntimesHead   int
	lastRoundRuntime     time.Duration
}

// Round tracks the phases of a single round
type Round struct {
	stats       *RoundStatistics
	start       time.Time
	mapStart    time.Time
	mapRuntime  time.Duration
	reduceStart time.Time
	rows        int
}

// NewRoundStatistics creates an empty RoundStatistics
func NewRoundStatistics() *RoundStatistics {
	return &RoundStatistics{
		startTime:            time.Now(),
		recentMapRuntimes:    make([]time.Duration, statisticRollingWindows),
		recentReduceRuntimes: make([]time.Duration, statisticRollingWindows),
	}
}

// StartRound tracks the beginning of a round, and of its map phase
func (rs *RoundStatistics) StartRound() *Round {
	now := time.Now()
	return &Round{stats: rs, start: now, mapStart: now}
}

// EndMap tracks the end of the map phase of a round, and the beginning of its reduce phase
func (r *Round) EndMap(numRows int) {
	r.reduceStart = time.Now()
	r.mapRuntime = r.reduceStart.Sub(r.mapStart)
	r.rows = numRows
}

// End tracks the successful completion of a round
func (r *Round) End() {
	now := time.Now()
	rs := r.stats
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if r.reduceStart.IsZero() {
		r.reduceStart = now
	}
	rs.recentMapRuntimes[rs.recentRuntimesHead] = r.mapRuntime
	rs.recentReduceRuntimes[rs.recentRuntimesHead] = now.Sub(r.reduceStart)
	rs.recentRuntimesHead = (rs.recentRuntimesHead + 1) % statisticRollingWindows
	rs.rowsProcessed += int64(r.rows)
	rs.roundsCompleted++
	rs.lastRoundRuntime = now.Sub(r.start)
}

// BlobSent counts an outbound blob
func (rs *RoundStatistics) BlobSent() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.blobsSent++
}

// BlobReceived counts an inbound blob
func (rs *RoundStatistics) BlobReceived() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.blobsReceived++
}

// GetStartTime returns the time at which statistics tracking began
func (rs *RoundStatistics) GetStartTime() time.Time {
	return rs.startTime
}

// GetRuntime returns the time elapsed since statistics tracking began
func (rs *RoundStatistics) GetRuntime() time.Duration {
	return time.Since(rs.startTime)
}

// GetNumRoundsCompleted returns the number of rounds this node has completed
func (rs *RoundStatistics) GetNumRoundsCompleted() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.roundsCompleted
}

// GetNumRowsProcessed returns the number of local rows visited across all completed rounds
func (rs *RoundStatistics) GetNumRowsProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsProcessed
}

// GetNumBlobs returns the number of blobs sent and received
func (rs *RoundStatistics) GetNumBlobs() (sent int64, received int64) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.blobsSent, rs.blobsReceived
}

// GetLastRoundRuntime returns the duration of the most recently completed round
func (rs *RoundStatistics) GetLastRoundRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.lastRoundRuntime
}

// GetCurrentMapRuntime returns a rolling average of map phase runtimes
func (rs *RoundStatistics) GetCurrentMapRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rollingAverage(rs.recentMapRuntimes)
}

// GetCurrentReduceRuntime returns a rolling average of reduce phase runtimes
func (rs *RoundStatistics) GetCurrentReduceRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rollingAverage(rs.recentReduceRuntimes)
}

// rollingAverage averages over the windows which have been filled so far
func (rs *RoundStatistics) rollingAverage(runtimes []time.Duration) time.Duration {
	n := rs.roundsCompleted
	if n == 0 {
		return 0
	} else if n > statisticRollingWindows {
		n = statisticRollingWindows
	}
	var total time.Duration
	for _, d := range runtimes {
		total += d
	}
	return total / time.Duration(n)
}

// ToMessage converts this struct into a protobuf message
func (rs *RoundStatistics) ToMessage() (*structpb.Struct, error) {
	sent, received := rs.GetNumBlobs()
	return structpb.NewStruct(map[string]interface{}{
		"startTime":            rs.startTime.UnixNano(),
		"runtime":              rs.GetRuntime().Nanoseconds(),
		"roundsCompleted":      rs.GetNumRoundsCompleted(),
		"rowsProcessed":        rs.GetNumRowsProcessed(),
		"blobsSent":            sent,
		"blobsReceived":        received,
		"lastRoundRuntime":     rs.GetLastRoundRuntime().Nanoseconds(),
		"currentMapRuntime":    rs.GetCurrentMapRuntime().Nanoseconds(),
		"currentReduceRuntime": rs.GetCurrentReduceRuntime().Nanoseconds(),
	})
}
