package coldarchive

import (
	"strconv"
	"time"

	"github.com/ionflux/datacenter/model"
)

var tickColumns = []string{
	"InstrumentID", "ExchangeID", "TradingDay", "LastPrice", "Volume", "OpenInterest", "Timestamp",
}

func tickRow(t model.Tick) []string {
	return []string{
		t.InstrumentID, t.ExchangeID, t.TradingDay,
		strconv.FormatFloat(t.LastPrice, 'f', -1, 64),
		strconv.FormatInt(t.Volume, 10),
		strconv.FormatInt(t.OpenInterest, 10),
		t.Timestamp.Format(time.RFC3339Nano),
	}
}

func parseTickRow(row []string) (model.Tick, error) {
	var t model.Tick
	if len(row) != len(tickColumns) {
		return t, errRowShape
	}
	t.InstrumentID = row[0]
	t.ExchangeID = row[1]
	t.TradingDay = row[2]
	var err error
	if t.LastPrice, err = strconv.ParseFloat(row[3], 64); err != nil {
		return t, err
	}
	if t.Volume, err = strconv.ParseInt(row[4], 10, 64); err != nil {
		return t, err
	}
	if t.OpenInterest, err = strconv.ParseInt(row[5], 10, 64); err != nil {
		return t, err
	}
	if t.Timestamp, err = time.Parse(time.RFC3339Nano, row[6]); err != nil {
		return t, err
	}
	return t, nil
}

var barColumns = []string{
	"Interval", "InstrumentID", "ExchangeID", "TradingDay",
	"OpenPrice", "HighPrice", "LowPrice", "ClosePrice", "Volume", "OpenInterest", "Timestamp",
}

func barRow(b model.Bar) []string {
	return []string{
		b.Interval, b.InstrumentID, b.ExchangeID, b.TradingDay,
		strconv.FormatFloat(b.OpenPrice, 'f', -1, 64),
		strconv.FormatFloat(b.HighPrice, 'f', -1, 64),
		strconv.FormatFloat(b.LowPrice, 'f', -1, 64),
		strconv.FormatFloat(b.ClosePrice, 'f', -1, 64),
		strconv.FormatInt(b.Volume, 10),
		strconv.FormatInt(b.OpenInterest, 10),
		b.Timestamp.Format(time.RFC3339Nano),
	}
}

func parseBarRow(row []string) (model.Bar, error) {
	var b model.Bar
	if len(row) != len(barColumns) {
		return b, errRowShape
	}
	b.Interval = row[0]
	b.InstrumentID = row[1]
	b.ExchangeID = row[2]
	b.TradingDay = row[3]
	var err error
	if b.OpenPrice, err = strconv.ParseFloat(row[4], 64); err != nil {
		return b, err
	}
	if b.HighPrice, err = strconv.ParseFloat(row[5], 64); err != nil {
		return b, err
	}
	if b.LowPrice, err = strconv.ParseFloat(row[6], 64); err != nil {
		return b, err
	}
	if b.ClosePrice, err = strconv.ParseFloat(row[7], 64); err != nil {
		return b, err
	}
	if b.Volume, err = strconv.ParseInt(row[8], 10, 64); err != nil {
		return b, err
	}
	if b.OpenInterest, err = strconv.ParseInt(row[9], 10, 64); err != nil {
		return b, err
	}
	if b.Timestamp, err = time.Parse(time.RFC3339Nano, row[10]); err != nil {
		return b, err
	}
	return b, nil
}

func readTickPartition(path string) ([]model.Tick, error) {
	r, closer, err := openGzipCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	if _, err := r.Read(); err != nil { // header
		return nil, err
	}
	var out []model.Tick
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		t, err := parseTickRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func readBarPartition(path string) ([]model.Bar, error) {
	r, closer, err := openGzipCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	if _, err := r.Read(); err != nil { // header
		return nil, err
	}
	var out []model.Bar
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		b, err := parseBarRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
