// Package appendlog is the pipeline's write-ahead tier: ticks are hashed by
// instrument onto one of N shard workers, each buffering rows per
// instrument and flushing to "{base}/{trading_day}/{instrument}.csv" once a
// row-count threshold or a trading-day rollover is hit. A full shard queue
// degrades to a direct, synchronous write rather than losing data; a write
// that fails even there is appended to failed_writes.log.
package appendlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

type writeJob struct {
	instrumentID string
	tradingDay   string
	rows         []model.Tick
}

// Log is the sharded append-only CSV writer.
type Log struct {
	baseDir        string
	shards         int
	batchThreshold int
	logger         datacenter.Logger

	queues []chan writeJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	fileLocksMu sync.Mutex
	fileLocks   map[string]*sync.Mutex

	failedMu sync.Mutex
	failed   *os.File

	rowsWritten  atomic.Uint64
	rowsFailed   atomic.Uint64
	directWrites atomic.Uint64
}

// Stats mirrors the reference writer's get_stats(): a cheap point-in-time
// snapshot suitable for Supervisor's health poll.
type Stats struct {
	RowsWritten  uint64
	RowsFailed   uint64
	DirectWrites uint64
}

func (l *Log) Stats() Stats {
	return Stats{
		RowsWritten:  l.rowsWritten.Load(),
		RowsFailed:   l.rowsFailed.Load(),
		DirectWrites: l.directWrites.Load(),
	}
}

func New(baseDir string, shards, batchThreshold, queueSize int, logger datacenter.Logger) (*Log, error) {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	failed, err := os.OpenFile(filepath.Join(baseDir, "failed_writes.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	l := &Log{
		baseDir:        baseDir,
		shards:         shards,
		batchThreshold: batchThreshold,
		logger:         logger,
		fileLocks:      make(map[string]*sync.Mutex),
		failed:         failed,
	}
	l.queues = make([]chan writeJob, shards)
	for i := range l.queues {
		l.queues[i] = make(chan writeJob, queueSize)
	}
	return l, nil
}

// hashInstrument picks the shard for an instrument using a stable,
// non-language-default hash so distribution doesn't depend on Go's
// randomized map seed.
func (l *Log) hashInstrument(instrumentID string) int {
	return int(xxhash.Sum64String(instrumentID) % uint64(l.shards))
}

// Start launches one worker goroutine per shard.
func (l *Log) Start(ctx context.Context) {
	l.ctx, l.cancel = context.WithCancel(ctx)
	for i := 0; i < l.shards; i++ {
		l.wg.Add(1)
		go l.worker(i)
	}
}

// Stop drains and closes every shard, waiting up to timeout for workers to
// exit and flush their remaining buffers.
func (l *Log) Stop(timeout time.Duration) {
	l.cancel()
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		l.logger.Warn("append log workers did not stop within timeout")
	}
	l.failed.Close()
}

// Submit routes ticks (grouped by instrument) to their shard's queue. A
// full queue after a bounded wait degrades to a direct synchronous write so
// no data is silently dropped.
func (l *Log) Submit(instrumentID, tradingDay string, rows []model.Tick) {
	shard := l.hashInstrument(instrumentID)
	job := writeJob{instrumentID: instrumentID, tradingDay: tradingDay, rows: rows}

	select {
	case l.queues[shard] <- job:
		return
	default:
	}

	select {
	case l.queues[shard] <- job:
	case <-time.After(5 * time.Second):
		l.logger.Error("shard queue full, falling back to direct write", "instrument", instrumentID, "shard", shard)
		l.writeDirect(job)
	}
}

func (l *Log) worker(shard int) {
	defer l.wg.Done()

	buffer := make(map[string][]model.Tick)
	bufferedRows := 0
	currentDay := ""

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		l.flushBuffer(buffer, currentDay)
		buffer = make(map[string][]model.Tick)
		bufferedRows = 0
	}

	for {
		select {
		case <-l.ctx.Done():
			// drain jobs still queued before the final flush so Stop loses
			// nothing that Submit already accepted
			for {
				select {
				case job := <-l.queues[shard]:
					if currentDay != "" && job.tradingDay != currentDay {
						flush()
					}
					currentDay = job.tradingDay
					buffer[job.instrumentID] = append(buffer[job.instrumentID], job.rows...)
					bufferedRows += len(job.rows)
				default:
					flush()
					return
				}
			}
		case job, ok := <-l.queues[shard]:
			if !ok {
				flush()
				return
			}
			if currentDay != "" && job.tradingDay != currentDay {
				flush()
			}
			currentDay = job.tradingDay
			buffer[job.instrumentID] = append(buffer[job.instrumentID], job.rows...)
			bufferedRows += len(job.rows)
			if bufferedRows >= l.batchThreshold {
				flush()
			}
		case <-time.After(time.Second):
			// mirrors the 1s dequeue timeout of the reference writer: gives
			// partially filled buffers a chance to flush even during a lull.
			if bufferedRows > 0 {
				flush()
			}
		}
	}
}

func (l *Log) flushBuffer(buffer map[string][]model.Tick, tradingDay string) {
	for instrumentID, rows := range buffer {
		if err := l.appendCSV(instrumentID, tradingDay, rows); err != nil {
			l.logger.Error("append log flush failed", "instrument", instrumentID, "error", err)
			l.rowsFailed.Add(uint64(len(rows)))
			l.recordFailure(instrumentID, tradingDay, rows, err)
			continue
		}
		l.rowsWritten.Add(uint64(len(rows)))
	}
}

func (l *Log) writeDirect(job writeJob) {
	l.directWrites.Add(1)
	if err := l.appendCSV(job.instrumentID, job.tradingDay, job.rows); err != nil {
		l.logger.Error("direct write failed", "instrument", job.instrumentID, "error", err)
		l.rowsFailed.Add(uint64(len(job.rows)))
		l.recordFailure(job.instrumentID, job.tradingDay, job.rows, err)
		return
	}
	l.rowsWritten.Add(uint64(len(job.rows)))
}

func (l *Log) filePath(instrumentID, tradingDay string) string {
	return filepath.Join(l.baseDir, tradingDay, instrumentID+".csv")
}

func (l *Log) lockFor(path string) *sync.Mutex {
	l.fileLocksMu.Lock()
	defer l.fileLocksMu.Unlock()
	m, ok := l.fileLocks[path]
	if !ok {
		m = &sync.Mutex{}
		l.fileLocks[path] = m
	}
	return m
}

func (l *Log) appendCSV(instrumentID, tradingDay string, rows []model.Tick) error {
	path := l.filePath(instrumentID, tradingDay)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lock := l.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	info, statErr := os.Stat(path)
	fileExists := statErr == nil && info.Size() > 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !fileExists {
		if err := w.Write(tickCSVHeader); err != nil {
			return err
		}
	}
	for _, t := range rows {
		if err := w.Write(tickCSVRow(t)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (l *Log) recordFailure(instrumentID, tradingDay string, rows []model.Tick, cause error) {
	fw := model.FailedWrite{
		InstrumentID: instrumentID,
		TradingDay:   tradingDay,
		Reason:       cause.Error(),
		OccurredAt:   time.Now(),
		RowCount:     len(rows),
	}

	l.failedMu.Lock()
	defer l.failedMu.Unlock()
	fmt.Fprintf(l.failed, "%s | %s | %s | %d | %s\n",
		fw.OccurredAt.Format(time.RFC3339), fw.TradingDay, fw.InstrumentID, fw.RowCount, fw.Reason)
}
