package appendlog

import (
	"archive/tar"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// PostSessionResult summarizes one day directory's dedup-sort-archive pass.
type PostSessionResult struct {
	TradingDay    string
	FilesCleaned  int
	ArchivePath   string
}

// RunPostSession dedups each CSV under {baseDir}/{tradingDay} by its
// timestamp column (keeping the last occurrence), sorts ascending by
// timestamp, atomically replaces the file, then packs the whole day
// directory into {tradingDay}.tar.gz and removes the original directory.
// Intended to be invoked outside market hours by an external scheduler.
func (l *Log) RunPostSession(tradingDay string) (PostSessionResult, error) {
	dayDir := filepath.Join(l.baseDir, tradingDay)
	result := PostSessionResult{TradingDay: tradingDay}

	entries, err := os.ReadDir(dayDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		path := filepath.Join(dayDir, entry.Name())
		if err := dedupAndSortCSV(path); err != nil {
			return result, fmt.Errorf("dedup %s: %w", path, err)
		}
		result.FilesCleaned++
	}

	archivePath := filepath.Join(l.baseDir, tradingDay+".tar.gz")
	if err := archiveDayDir(dayDir, tradingDay, archivePath); err != nil {
		return result, fmt.Errorf("archive %s: %w", dayDir, err)
	}
	result.ArchivePath = archivePath

	if err := os.RemoveAll(dayDir); err != nil {
		return result, fmt.Errorf("remove original day dir: %w", err)
	}
	return result, nil
}

// dedupAndSortCSV keeps the last row for each distinct timestamp key, sorts
// the remainder ascending by timestamp, and atomically replaces the file
// via a temp-file-then-rename swap.
func dedupAndSortCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	tsIdx := len(header) - 1 // Timestamp is always the last column, see tickCSVHeader

	byTimestamp := make(map[string][]string)
	var order []string
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if len(row) <= tsIdx {
			continue
		}
		key := row[tsIdx]
		if _, seen := byTimestamp[key]; !seen {
			order = append(order, key)
		}
		byTimestamp[key] = row // last occurrence wins
	}
	f.Close()

	sort.Strings(order)

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		out.Close()
		return err
	}
	for _, key := range order {
		if err := w.Write(byTimestamp[key]); err != nil {
			out.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func archiveDayDir(dayDir, tradingDay, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dayDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name: filepath.Join(tradingDay, entry.Name()),
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(tw, in)
		in.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}
