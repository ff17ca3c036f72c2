package appendlog

import (
	"strconv"
	"time"

	"github.com/ionflux/datacenter/model"
)

// tickCSVHeader and tickCSVRow mirror the hot store's tick column order so
// the append log and the hot store agree on a single on-disk tick shape
// throughout the pipeline.
var tickCSVHeader = []string{
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

func tickCSVRow(t model.Tick) []string {
	row := []string{
		t.TradingDay, t.ExchangeID,
		ftoa(t.LastPrice), ftoa(t.PreSettlementPrice), ftoa(t.PreClosePrice),
		itoa(t.PreOpenInterest), ftoa(t.OpenPrice), ftoa(t.HighestPrice), ftoa(t.LowestPrice),
		itoa(t.Volume), ftoa(t.Turnover),
		itoa(t.OpenInterest), ftoa(t.ClosePrice), ftoa(t.SettlementPrice),
		ftoa(t.UpperLimitPrice), ftoa(t.LowerLimitPrice),
		ftoa(t.PreDelta), ftoa(t.CurrDelta), t.UpdateTime, itoa(t.UpdateMillisec),
	}
	for i := 0; i < 5; i++ {
		row = append(row, ftoa(t.BidPrice[i]), itoa(t.BidVolume[i]), ftoa(t.AskPrice[i]), itoa(t.AskVolume[i]))
	}
	row = append(row, ftoa(t.AveragePrice), t.ActionDay, t.InstrumentID, t.ExchangeInstID,
		ftoa(t.BandingUpperPrice), ftoa(t.BandingLowerPrice), t.Timestamp.Format(time.RFC3339Nano))
	return row
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
