package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"trade-sim-lab/internal/domain"
)

// ErrUnorderedBars is returned when a CSV file's timestamps are not
// strictly increasing.
var ErrUnorderedBars = errors.New("bars not strictly ordered by timestamp")

// csv columns, in required header order. entry_confidence is optional and
// defaults to zero when the column is absent.
var requiredColumns = []string{"timestamp_ms", "open", "high", "low", "close", "volume"}

const confidenceColumn = "entry_confidence"

// ReadBars parses a CSV of OHLCV rows into a bar series for one symbol.
// The first row must be a header naming at least the required columns.
// Timestamps must be strictly increasing.
func ReadBars(r io.Reader, symbol string) (domain.BarSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var series domain.BarSeries
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		bar, err := parseRecord(record, index, symbol)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		if n := len(series); n > 0 && bar.TimestampMs <= series[n-1].TimestampMs {
			return nil, fmt.Errorf("csv line %d: %w", line, ErrUnorderedBars)
		}
		series = append(series, bar)
	}

	return series, nil
}

// ReadBarsFile reads a bar series from a CSV file on disk.
func ReadBarsFile(path, symbol string) (domain.BarSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	return ReadBars(f, symbol)
}

// columnIndex maps column names to positions and verifies required columns.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", name)
		}
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int, symbol string) (*domain.Bar, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) {
			return "", fmt.Errorf("missing field %q", name)
		}
		return record[i], nil
	}

	raw, err := field("timestamp_ms")
	if err != nil {
		return nil, err
	}
	timestampMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp_ms %q: %w", raw, err)
	}

	bar := &domain.Bar{Symbol: symbol, TimestampMs: timestampMs}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	}
	for _, f := range floats {
		raw, err := field(f.name)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", f.name, raw, err)
		}
		*f.dst = v
	}

	if i, ok := index[confidenceColumn]; ok && i < len(record) {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", confidenceColumn, record[i], err)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%s %v outside [0,1]", confidenceColumn, v)
		}
		bar.EntryConfidence = v
	}

	return bar, nil
}
