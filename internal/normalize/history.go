package normalize

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"marketquote/internal/provider"
)

// DailyBar is one OHLCV row of a periodic history.
type DailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// History is the daily/periodic bar series for one symbol.
type History struct {
	Symbol   string     `json:"symbol"`
	Period   string     `json:"period"`
	Interval string     `json:"interval"`
	Data     []DailyBar `json:"data"`
}

// Intraday is the chart-oriented form of a bar series: parallel close and
// volume arrays plus the first and last bar times in milliseconds.
type Intraday struct {
	Symbol      string    `json:"symbol"`
	Data        []float64 `json:"Data"`
	MarketStart int64     `json:"MarketStart"`
	MarketEnd   int64     `json:"MarketEnd"`
	VolumeData  []int64   `json:"VolumeData"`
	Period      string    `json:"period"`
	Interval    string    `json:"interval"`

	timestamps []int64
}

// Timestamps returns the per-bar times in milliseconds, index-aligned with
// Data and VolumeData.
func (in Intraday) Timestamps() []int64 {
	return append([]int64(nil), in.timestamps...)
}

// Round2 rounds to two decimal places, half away from zero. Missing and
// non-finite values become 0.
func Round2(v null.Float) float64 {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v.Float64).Round(2).Float64()
	return f
}

// NormalizeHistory converts bars into daily rows, keeping provider order.
func NormalizeHistory(symbol, period, interval string, bars []provider.Bar) (History, error) {
	if len(bars) == 0 {
		return History{}, &Error{Kind: NoHistory, Op: OpHistory, Symbol: symbol}
	}
	data := make([]DailyBar, 0, len(bars))
	for _, b := range bars {
		var date string
		if b.Time.Valid {
			date = b.Time.Time.Format(time.DateOnly)
		}
		data = append(data, DailyBar{
			Date:   date,
			Open:   Round2(b.Open),
			High:   Round2(b.High),
			Low:    Round2(b.Low),
			Close:  Round2(b.Close),
			Volume: b.Volume.ValueOrZero(),
		})
	}
	return History{Symbol: symbol, Period: period, Interval: interval, Data: data}, nil
}

// NormalizeIntraday converts bars into parallel close/volume arrays.
func NormalizeIntraday(symbol, period, interval string, bars []provider.Bar) (Intraday, error) {
	if len(bars) == 0 {
		return Intraday{}, &Error{Kind: NoHistory, Op: OpIntraday, Symbol: symbol}
	}
	out := Intraday{
		Symbol:     symbol,
		Data:       make([]float64, 0, len(bars)),
		VolumeData: make([]int64, 0, len(bars)),
		Period:     period,
		Interval:   interval,
		timestamps: make([]int64, 0, len(bars)),
	}
	for _, b := range bars {
		out.timestamps = append(out.timestamps, UnixMillis(b.Time))
		out.Data = append(out.Data, Round2(b.Close))
		out.VolumeData = append(out.VolumeData, b.Volume.ValueOrZero())
	}
	if n := len(out.timestamps); n > 0 {
		out.MarketStart = out.timestamps[0]
		out.MarketEnd = out.timestamps[n-1]
	}
	return out, nil
}
