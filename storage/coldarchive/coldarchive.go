// Package coldarchive is the pipeline's cold tier: a columnar
// file-per-partition store keyed by (instrument, date) for ticks and
// (instrument, interval, date) for bars. Each partition is a single
// gzip-compressed CSV file; queries do a full-file read with an in-memory
// time-range filter, since cold partitions are write-once and small enough
// that an index would be premature.
package coldarchive

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

// Archive is the cold store. One instance serves the whole pipeline.
type Archive struct {
	dataDir string
	logger  datacenter.Logger
}

func New(dataDir string, logger datacenter.Logger) *Archive {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	return &Archive{dataDir: dataDir, logger: logger}
}

func (a *Archive) tickPartitionPath(instrumentID, date string) string {
	return filepath.Join(a.dataDir, "ticks", instrumentID, date+".csv.gz")
}

func (a *Archive) barPartitionPath(instrumentID, interval, date string) string {
	return filepath.Join(a.dataDir, "bars", instrumentID, interval, date+".csv.gz")
}

// SaveTicks writes one (instrument, date) partition. Called by the Archiver
// once per group when moving rows out of HotStore.
func (a *Archive) SaveTicks(instrumentID, date string, rows []model.Tick) error {
	if len(rows) == 0 {
		return nil
	}
	path := a.tickPartitionPath(instrumentID, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	w := csv.NewWriter(gz)
	if err := w.Write(tickColumns); err != nil {
		return err
	}
	for _, t := range rows {
		if err := w.Write(tickRow(t)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SaveBars writes one (instrument, interval, date) partition.
func (a *Archive) SaveBars(instrumentID, interval, date string, rows []model.Bar) error {
	if len(rows) == 0 {
		return nil
	}
	path := a.barPartitionPath(instrumentID, interval, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	w := csv.NewWriter(gz)
	if err := w.Write(barColumns); err != nil {
		return err
	}
	for _, b := range rows {
		if err := w.Write(barRow(b)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// QueryTicks reads every date partition between start and end (inclusive)
// for one instrument, filtering rows to the exact window.
func (a *Archive) QueryTicks(instrumentID string, start, end time.Time) ([]model.Tick, error) {
	var out []model.Tick
	for _, date := range datesBetween(start, end) {
		path := a.tickPartitionPath(instrumentID, date)
		rows, err := readTickPartition(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, t := range rows {
			if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// QueryBars is QueryTicks' bar-table counterpart, additionally scoped to
// one interval.
func (a *Archive) QueryBars(instrumentID, interval string, start, end time.Time) ([]model.Bar, error) {
	var out []model.Bar
	for _, date := range datesBetween(start, end) {
		path := a.barPartitionPath(instrumentID, interval, date)
		rows, err := readBarPartition(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, b := range rows {
			if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func datesBetween(start, end time.Time) []string {
	var dates []string
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	for !day.After(last) {
		dates = append(dates, day.Format("20060102"))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

func openGzipCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open gzip partition %s: %w", path, err)
	}
	closer := func() error {
		gz.Close()
		return f.Close()
	}
	return csv.NewReader(gz), closer, nil
}
