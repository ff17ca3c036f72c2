package hotstore

import (
	"fmt"
	"strings"

	"github.com/ionflux/datacenter/model"
)

// tickColumns lists every column of the tick table in the exact order spec
// §6.4 requires for portability between the hot store and the append log.
var tickColumns = []string{
	"TradingDay", "ExchangeID", "LastPrice", "PreSettlementPrice", "PreClosePrice",
	"PreOpenInterest", "OpenPrice", "HighestPrice", "LowestPrice", "Volume", "Turnover",
	"OpenInterest", "ClosePrice", "SettlementPrice", "UpperLimitPrice", "LowerLimitPrice",
	"PreDelta", "CurrDelta", "UpdateTime", "UpdateMillisec",
	"BidPrice1", "BidVolume1", "AskPrice1", "AskVolume1",
	"BidPrice2", "BidVolume2", "AskPrice2", "AskVolume2",
	"BidPrice3", "BidVolume3", "AskPrice3", "AskVolume3",
	"BidPrice4", "BidVolume4", "AskPrice4", "AskVolume4",
	"BidPrice5", "BidVolume5", "AskPrice5", "AskVolume5",
	"AveragePrice", "ActionDay", "InstrumentID", "ExchangeInstID",
	"BandingUpperPrice", "BandingLowerPrice", "Timestamp",
}

func tickTableDDL(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	types := map[string]string{
		"TradingDay": "TEXT", "ExchangeID": "TEXT", "UpdateTime": "TEXT", "ActionDay": "TEXT",
		"InstrumentID": "TEXT", "ExchangeInstID": "TEXT", "Timestamp": "DATETIME",
		"PreOpenInterest": "INTEGER", "Volume": "INTEGER", "OpenInterest": "INTEGER", "UpdateMillisec": "INTEGER",
	}
	for i, col := range tickColumns {
		t, ok := types[col]
		if !ok {
			switch {
			case strings.HasPrefix(col, "BidVolume") || strings.HasPrefix(col, "AskVolume"):
				t = "INTEGER"
			default:
				t = "REAL"
			}
		}
		fmt.Fprintf(&b, "  %s %s", col, t)
		if i < len(tickColumns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

func tickInsertSQL(table string) string {
	placeholders := make([]string, len(tickColumns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(tickColumns, ","), strings.Join(placeholders, ","))
}

func tickInsertArgs(t model.Tick) []any {
	args := []any{
		t.TradingDay, t.ExchangeID, t.LastPrice, t.PreSettlementPrice, t.PreClosePrice,
		t.PreOpenInterest, t.OpenPrice, t.HighestPrice, t.LowestPrice, t.Volume, t.Turnover,
		t.OpenInterest, t.ClosePrice, t.SettlementPrice, t.UpperLimitPrice, t.LowerLimitPrice,
		t.PreDelta, t.CurrDelta, t.UpdateTime, t.UpdateMillisec,
	}
	for i := 0; i < 5; i++ {
		args = append(args, t.BidPrice[i], t.BidVolume[i], t.AskPrice[i], t.AskVolume[i])
	}
	args = append(args, t.AveragePrice, t.ActionDay, t.InstrumentID, t.ExchangeInstID,
		t.BandingUpperPrice, t.BandingLowerPrice, t.Timestamp)
	return args
}

var barColumns = []string{
	"BarType", "TradingDay", "UpdateTime", "InstrumentID", "ExchangeID", "Volume",
	"OpenInterest", "OpenPrice", "HighestPrice", "LowestPrice", "ClosePrice", "LastVolume", "Timestamp",
}

func barTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  BarType TEXT,
  TradingDay TEXT,
  UpdateTime TEXT,
  InstrumentID TEXT,
  ExchangeID TEXT,
  Volume INTEGER,
  OpenInterest INTEGER,
  OpenPrice REAL,
  HighestPrice REAL,
  LowestPrice REAL,
  ClosePrice REAL,
  LastVolume INTEGER,
  Timestamp DATETIME
)`, table)
}

func barInsertSQL(table string) string {
	placeholders := make([]string, len(barColumns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(barColumns, ","), strings.Join(placeholders, ","))
}

func barInsertArgs(b model.Bar) []any {
	return []any{
		b.Interval, b.TradingDay, b.UpdateTime, b.InstrumentID, b.ExchangeID, b.Volume,
		b.OpenInterest, b.OpenPrice, b.HighPrice, b.LowPrice, b.ClosePrice, b.LastVolume, b.Timestamp,
	}
}
