// Package csvfeed loads OHLCV candle files into tickers.
//
// A file holds one instrument with the columns ts,open,high,low,close,volume.
// ts is Unix seconds, Unix milliseconds or RFC3339. A leading header row is
// skipped. Rows must be in ascending time order.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bollinger-backtest/internal/model"
)

var (
	// ErrNotEnoughColumns is returned for a row with fewer than five columns.
	ErrNotEnoughColumns = errors.New("not enough columns")

	// ErrInvalidTime is returned when ts cannot be parsed.
	ErrInvalidTime = errors.New("cannot parse timestamp")

	// ErrInvalidPrice is returned when a price or volume is not a decimal number.
	ErrInvalidPrice = errors.New("prices must be decimal numbers")

	// ErrUnordered is returned when a row is not later than the previous one.
	ErrUnordered = errors.New("candles out of order")
)

// unix timestamps above this are taken as milliseconds
const millisThreshold = 1e11

// Read parses candles from r into a ticker for symbol on exchange.
func Read(r io.Reader, symbol, exchange string) (model.Ticker, error) {
	t := model.Ticker{Symbol: symbol, Exchange: exchange}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return t, fmt.Errorf("csv read: %w", err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}

		c, err := decode(record)
		if err != nil {
			return t, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(t.Candles); n > 0 && !c.TS.After(t.Candles[n-1].TS) {
			return t, fmt.Errorf("line %d: %w", line, ErrUnordered)
		}
		t.Candles = append(t.Candles, c)
	}

	return t, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path, symbol, exchange string) (model.Ticker, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	t, err := Read(f, symbol, exchange)
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Source serves tickers from a directory laid out as {dir}/{exchange}/{symbol}.csv.
type Source struct {
	dir string
}

// NewSource creates a directory-backed candle source.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Path returns the file that holds exchange:symbol.
func (s *Source) Path(exchange, symbol string) string {
	return filepath.Join(s.dir, exchange, symbol+".csv")
}

// ReadTicker loads exchange:symbol, keeping candles strictly after after.
// A missing file or a series with no candles left is reported as
// model.ErrNotFound; a non-positive close as model.ErrInvalidCandle.
func (s *Source) ReadTicker(ctx context.Context, exchange, symbol string, after time.Time) (model.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return model.Ticker{}, err
	}

	t, err := ReadFile(s.Path(exchange, symbol), symbol, exchange)
	if errors.Is(err, os.ErrNotExist) {
		return t, fmt.Errorf("ticker %s:%s: %w", exchange, symbol, model.ErrNotFound)
	}
	if err != nil {
		return t, err
	}

	if !after.IsZero() {
		i := 0
		for i < len(t.Candles) && !t.Candles[i].TS.After(after) {
			i++
		}
		t.Candles = t.Candles[i:]
	}
	if len(t.Candles) == 0 {
		return t, fmt.Errorf("candles for %s: %w", t.Key(), model.ErrNotFound)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(record[0])) {
	case "ts", "time", "timestamp", "date":
		return true
	}
	return false
}

func decode(record []string) (model.Candle, error) {
	var c model.Candle
	if len(record) < 5 {
		return c, ErrNotEnoughColumns
	}

	ts, err := parseTime(strings.TrimSpace(record[0]))
	if err != nil {
		return c, err
	}
	c.TS = ts

	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close}
	if len(record) > 5 {
		fields = append(fields, &c.Volume)
	}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return c, fmt.Errorf("column %d %q: %w", i+1, record[i+1], ErrInvalidPrice)
		}
		*dst = v
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > millisThreshold {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidTime)
}
