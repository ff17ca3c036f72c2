// Package hotstore is the pipeline's hot tier: one embedded SQLite database
// file per trading day, with one tick table and one bar table per
// instrument inside it. Writes are buffered and flushed asynchronously once
// a row-count threshold is crossed; queries that span multiple days ATTACH
// every day's file and UNION ALL across them.
package hotstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

// AlarmSink receives an alarm when a buffered batch could not be flushed to
// disk even though it was dropped from memory; satisfied by whatever
// paging/notification collaborator the caller wires in.
type AlarmSink interface {
	Alarm(ctx context.Context, reason string, fields map[string]any)
}

type nopAlarmSink struct{}

func (nopAlarmSink) Alarm(context.Context, string, map[string]any) {}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]`)

// normalizeInstrumentID turns a contract code into a safe SQL identifier
// fragment: lowercased, stripped of anything but [a-z0-9_], and prefixed
// with "c" if it would otherwise start with a digit.
func normalizeInstrumentID(instrumentID string) string {
	if instrumentID == "" {
		return "unknown"
	}
	norm := nonIdentChars.ReplaceAllString(lower(instrumentID), "")
	if norm == "" {
		return "unknown"
	}
	if norm[0] >= '0' && norm[0] <= '9' {
		norm = "c" + norm
	}
	return norm
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// dayFile holds the *sql.DB for one trading day plus the buffered rows
// awaiting flush and the per-file mutex guarding both.
type dayFile struct {
	mu          sync.Mutex
	db          *sql.DB
	path        string
	tickBuffer  map[string][]model.Tick // keyed by instrumentID
	barBuffer   map[string][]model.Bar
	bufferedLen int
	tablesSeen  map[string]bool
}

// Store is the hot tier. One Store instance serves the whole pipeline; it
// opens a new dayFile lazily the first time a write targets a new day.
type Store struct {
	dataDir        string
	flushThreshold int
	alarm          AlarmSink
	logger         datacenter.Logger

	mu   sync.RWMutex
	days map[string]*dayFile

	failedMu sync.Mutex
	failed   *os.File
}

// New opens (creating if needed) the hot store's data directory and its
// failed_writes.log, the durable record of any buffered batch a flush
// could not commit. alarm may be nil, in which case flush failures are
// only recorded to failed_writes.log and the logger.
func New(dataDir string, flushThreshold int, alarm AlarmSink, logger datacenter.Logger) (*Store, error) {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	if alarm == nil {
		alarm = nopAlarmSink{}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create hot store data dir: %w", err)
	}
	failed, err := os.OpenFile(filepath.Join(dataDir, "failed_writes.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open hot store failed writes log: %w", err)
	}
	return &Store{
		dataDir:        dataDir,
		flushThreshold: flushThreshold,
		alarm:          alarm,
		logger:         logger,
		days:           make(map[string]*dayFile),
		failed:         failed,
	}, nil
}

func (s *Store) dayFilePath(tradingDay string) string {
	return filepath.Join(s.dataDir, tradingDay+".db")
}

func (s *Store) getOrOpenDay(tradingDay string) (*dayFile, error) {
	s.mu.RLock()
	df, ok := s.days[tradingDay]
	s.mu.RUnlock()
	if ok {
		return df, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if df, ok = s.days[tradingDay]; ok {
		return df, nil
	}

	path := s.dayFilePath(tradingDay)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open hot store day file %s: %w", path, err)
	}
	df = &dayFile{
		db:          db,
		path:        path,
		tickBuffer:  make(map[string][]model.Tick),
		barBuffer:   make(map[string][]model.Bar),
		tablesSeen:  make(map[string]bool),
	}
	s.days[tradingDay] = df
	return df, nil
}

// SaveTicks buffers ticks for later flush, flushing immediately if the
// combined buffer for this day crosses the configured threshold.
func (s *Store) SaveTicks(ctx context.Context, tradingDay string, ticks []model.Tick) error {
	df, err := s.getOrOpenDay(tradingDay)
	if err != nil {
		return err
	}

	df.mu.Lock()
	for _, t := range ticks {
		df.tickBuffer[t.InstrumentID] = append(df.tickBuffer[t.InstrumentID], t)
	}
	df.bufferedLen += len(ticks)
	shouldFlush := df.bufferedLen >= s.flushThreshold
	df.mu.Unlock()

	if shouldFlush {
		go s.flush(ctx, tradingDay, df)
	}
	return nil
}

// SaveBars buffers bars the same way SaveTicks buffers ticks.
func (s *Store) SaveBars(ctx context.Context, tradingDay string, bars []model.Bar) error {
	df, err := s.getOrOpenDay(tradingDay)
	if err != nil {
		return err
	}

	df.mu.Lock()
	for _, b := range bars {
		df.barBuffer[b.InstrumentID] = append(df.barBuffer[b.InstrumentID], b)
	}
	df.bufferedLen += len(bars)
	shouldFlush := df.bufferedLen >= s.flushThreshold
	df.mu.Unlock()

	if shouldFlush {
		go s.flush(ctx, tradingDay, df)
	}
	return nil
}

// flush holds df.mu for the entire swap-and-write sequence, not just the
// buffer swap: SaveTicks and SaveBars can each independently cross the
// flush threshold and spawn a concurrent flush for the same trading day,
// and two uncoordinated write transactions against the same SQLite file
// race each other. Holding the lock across the whole sequence serializes
// them, matching the rest of the pipeline's one-writer-per-file rule.
//
// A row dropped from the in-memory buffer here is never silently lost: on
// failure the batch is recorded to failed_writes.log and raised through
// the AlarmSink, mirroring the AppendLog degraded-write guarantee.
func (s *Store) flush(ctx context.Context, tradingDay string, df *dayFile) {
	df.mu.Lock()
	defer df.mu.Unlock()

	ticks := df.tickBuffer
	bars := df.barBuffer
	df.tickBuffer = make(map[string][]model.Tick)
	df.barBuffer = make(map[string][]model.Bar)
	df.bufferedLen = 0

	if err := s.flushTicks(ctx, df, ticks); err != nil {
		rows := tickRowCount(ticks)
		s.logger.Error("hot store flush ticks failed", "trading_day", tradingDay, "rows", rows, "error", err)
		s.recordFailure(ctx, tradingDay, rows, err)
	}
	if err := s.flushBars(ctx, df, bars); err != nil {
		rows := barRowCount(bars)
		s.logger.Error("hot store flush bars failed", "trading_day", tradingDay, "rows", rows, "error", err)
		s.recordFailure(ctx, tradingDay, rows, err)
	}
}

// recordFailure durably records a batch that flush could not commit and
// raises it through the AlarmSink.
func (s *Store) recordFailure(ctx context.Context, tradingDay string, rows int, cause error) {
	if rows == 0 {
		return
	}
	s.alarm.Alarm(ctx, "hot store flush failed", map[string]any{
		"trading_day": tradingDay,
		"rows":        rows,
		"error":       cause.Error(),
	})

	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	fmt.Fprintf(s.failed, "%s | %s | %d | %s\n", time.Now().Format(time.RFC3339), tradingDay, rows, cause.Error())
}

func tickRowCount(buffered map[string][]model.Tick) int {
	n := 0
	for _, rows := range buffered {
		n += len(rows)
	}
	return n
}

func barRowCount(buffered map[string][]model.Bar) int {
	n := 0
	for _, rows := range buffered {
		n += len(rows)
	}
	return n
}

// ensureTickTable and ensureBarTable assume the caller (flush, via
// flushTicks/flushBars) already holds df.mu for the duration of the flush.
func (s *Store) ensureTickTable(ctx context.Context, df *dayFile, instrumentID string) (string, error) {
	table := "tick_" + normalizeInstrumentID(instrumentID)
	if df.tablesSeen["t:"+table] {
		return table, nil
	}
	if _, err := df.db.ExecContext(ctx, tickTableDDL(table)); err != nil {
		return table, err
	}
	df.tablesSeen["t:"+table] = true
	return table, nil
}

func (s *Store) ensureBarTable(ctx context.Context, df *dayFile, instrumentID string) (string, error) {
	table := "kline_" + normalizeInstrumentID(instrumentID)
	if df.tablesSeen["b:"+table] {
		return table, nil
	}
	if _, err := df.db.ExecContext(ctx, barTableDDL(table)); err != nil {
		return table, err
	}
	df.tablesSeen["b:"+table] = true
	return table, nil
}

func (s *Store) flushTicks(ctx context.Context, df *dayFile, buffered map[string][]model.Tick) error {
	for instrumentID, rows := range buffered {
		if len(rows) == 0 {
			continue
		}
		table, err := s.ensureTickTable(ctx, df, instrumentID)
		if err != nil {
			return err
		}
		if err := s.insertTicks(ctx, df, table, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) flushBars(ctx context.Context, df *dayFile, buffered map[string][]model.Bar) error {
	for instrumentID, rows := range buffered {
		if len(rows) == 0 {
			continue
		}
		table, err := s.ensureBarTable(ctx, df, instrumentID)
		if err != nil {
			return err
		}
		if err := s.insertBars(ctx, df, table, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertTicks(ctx context.Context, df *dayFile, table string, rows []model.Tick) error {
	tx, err := df.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, tickInsertSQL(table))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range rows {
		if _, err := stmt.ExecContext(ctx, tickInsertArgs(t)...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertBars(ctx context.Context, df *dayFile, table string, rows []model.Bar) error {
	tx, err := df.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, barInsertSQL(table))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range rows {
		if _, err := stmt.ExecContext(ctx, barInsertArgs(b)...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Flush forces an immediate flush of every buffered day, used on shutdown
// so nothing lingers only in memory.
func (s *Store) Flush(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for day, df := range s.days {
		s.flush(ctx, day, df)
	}
}

// Close flushes and closes every open day file.
func (s *Store) Close(ctx context.Context) error {
	s.Flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, df := range s.days {
		if err := df.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.failed.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compact runs VACUUM against one trading day's file, reclaiming space
// after rows have been archived out by the Archiver.
func (s *Store) Compact(ctx context.Context, tradingDay string) error {
	if _, err := os.Stat(s.dayFilePath(tradingDay)); os.IsNotExist(err) {
		return nil // DeletePartition already removed the whole file
	}
	df, err := s.getOrOpenDay(tradingDay)
	if err != nil {
		return err
	}
	_, err = df.db.ExecContext(ctx, "VACUUM")
	return err
}

// ZombieFlushCount reports how many open day files hold buffered rows that
// have not been flushed yet, surfaced through Supervisor's health poll.
// staleAfter is not consulted: a day counts as soon as it has any buffered
// row, however recent, and flush goroutines themselves are not tracked.
func (s *Store) ZombieFlushCount(staleAfter time.Duration) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, df := range s.days {
		df.mu.Lock()
		if df.bufferedLen > 0 {
			count++
		}
		df.mu.Unlock()
	}
	return count
}
