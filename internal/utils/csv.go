// Package utils reads and writes klines and trades as CSV.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cryptoBacktester/internal/domain"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

var tradeHeader = []string{
	"id", "symbol", "side", "entry_time", "exit_time", "entry_price", "exit_price", "quantity",
	"gross_pnl", "commission", "slippage", "pnl", "close_reason", "entry_confidence",
}

// WriteKlines writes klines with a header row.
func WriteKlines(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(klineHeader); err != nil {
		return err
	}
	for _, k := range klines {
		err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			k.CloseTime.UTC().Format(time.RFC3339Nano),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteKlinesToCSV writes klines to filename, replacing it.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	return writeFile(filename, func(w io.Writer) error { return WriteKlines(w, klines) })
}

// ReadKlines parses klines written by WriteKlines. Columns are located by
// header name; symbol and interval may be absent. Times are RFC3339 or Unix
// milliseconds.
func ReadKlines(r io.Reader) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("kline csv is empty")
		}
		return nil, fmt.Errorf("reading kline csv header: %w", err)
	}
	cols, err := columns(header, "open_time", "open", "high", "low", "close")
	if err != nil {
		return nil, err
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading kline csv line %d: %w", line, err)
		}
		p := fieldParser{rec: rec, cols: cols}
		k := &domain.Kline{
			OpenTime: p.time("open_time"),
			Symbol:   p.str("symbol"),
			Interval: p.str("interval"),
			Open:     p.float("open"),
			High:     p.float("high"),
			Low:      p.float("low"),
			Close:    p.float("close"),
			Volume:   p.float("volume"),
		}
		if _, ok := cols["close_time"]; ok {
			k.CloseTime = p.time("close_time")
		}
		if p.err != nil {
			return nil, fmt.Errorf("kline csv line %d: %w", line, p.err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// ReadKlinesFromCSV reads klines from filename.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadKlines(file)
}

// WriteTrades writes the trade ledger with a header row.
func WriteTrades(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Side),
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.Quantity),
			formatFloat(t.GrossPNL),
			formatFloat(t.Commission),
			formatFloat(t.Slippage),
			formatFloat(t.PNL),
			string(t.CloseReason),
			formatFloat(t.EntryConfidence),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTradesToCSV writes trades to filename, replacing it.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	return writeFile(filename, func(w io.Writer) error { return WriteTrades(w, trades) })
}

// ReadTrades parses a ledger written by WriteTrades. Only exit_time and pnl
// are required.
func ReadTrades(r io.Reader) ([]*domain.Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("trade csv is empty")
		}
		return nil, fmt.Errorf("reading trade csv header: %w", err)
	}
	cols, err := columns(header, "exit_time", "pnl")
	if err != nil {
		return nil, err
	}

	var trades []*domain.Trade
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading trade csv line %d: %w", line, err)
		}
		p := fieldParser{rec: rec, cols: cols}
		t := &domain.Trade{
			Symbol:          p.str("symbol"),
			Side:            domain.PositionSide(p.str("side")),
			ExitTime:        p.time("exit_time"),
			EntryPrice:      p.float("entry_price"),
			ExitPrice:       p.float("exit_price"),
			Quantity:        p.float("quantity"),
			GrossPNL:        p.float("gross_pnl"),
			Commission:      p.float("commission"),
			Slippage:        p.float("slippage"),
			PNL:             p.float("pnl"),
			CloseReason:     domain.CloseReason(p.str("close_reason")),
			EntryConfidence: p.float("entry_confidence"),
		}
		if _, ok := cols["entry_time"]; ok {
			t.EntryTime = p.time("entry_time")
		}
		if s := p.str("id"); s != "" {
			t.ID, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("trade csv line %d: invalid id %q: %w", line, s, err)
			}
		}
		if p.err != nil {
			return nil, fmt.Errorf("trade csv line %d: %w", line, p.err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ReadTradesFromCSV reads a trade ledger from filename.
func ReadTradesFromCSV(filename string) ([]*domain.Trade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTrades(file)
}

func writeFile(filename string, write func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// columns maps header names to indexes and checks the required ones exist.
func columns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// fieldParser reads named fields from a record and keeps the first error.
type fieldParser struct {
	rec  []string
	cols map[string]int
	err  error
}

func (p *fieldParser) str(name string) string {
	i, ok := p.cols[name]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return strings.TrimSpace(p.rec[i])
}

func (p *fieldParser) float(name string) float64 {
	s := p.str(name)
	if s == "" || p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v
}

func (p *fieldParser) time(name string) time.Time {
	s := p.str(name)
	if p.err != nil {
		return time.Time{}
	}
	if s == "" {
		p.err = fmt.Errorf("missing %s", name)
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		p.err = fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return t.UTC()
}
