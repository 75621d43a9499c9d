package dataset

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/strandml/strand/pkg/errors"
)

// CSVSpec describes how to read a raw CSV into a Dataset: the expected
// feature columns with their kinds, the target column and its class labels.
// Rows with a missing or unparsable value in any declared column are
// dropped; an absent declared column is a fatal DataError.
type CSVSpec struct {
	Target   string
	Negative string
	Positive string
	Columns  []Column

	// DateFormat is the layout for date columns; defaults to "2006-01-02".
	DateFormat string

	// Missing lists cell values treated as absent, in addition to the
	// empty string. Defaults to "NA" and "NULL".
	Missing []string
}

func (s CSVSpec) dateFormat() string {
	if s.DateFormat == "" {
		return "2006-01-02"
	}
	return s.DateFormat
}

func (s CSVSpec) missingSet() map[string]bool {
	miss := map[string]bool{"": true}
	vals := s.Missing
	if vals == nil {
		vals = []string{"NA", "NULL"}
	}
	for _, v := range vals {
		miss[v] = true
	}
	return miss
}

// LoadCSVFile reads a CSV file into a Dataset.
func LoadCSVFile(path string, spec CSVSpec) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return LoadCSV(f, spec)
}

// LoadCSV reads CSV data with a header row into a Dataset.
func LoadCSV(r io.Reader, spec CSVSpec) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}

	// Fail fast before reading any data rows.
	if _, ok := colIdx[spec.Target]; !ok {
		return nil, errors.NewDataError("LoadCSV", spec.Target, "required column absent")
	}
	for _, c := range spec.Columns {
		if _, ok := colIdx[c.Name]; !ok {
			return nil, errors.NewDataError("LoadCSV", c.Name, "required column absent")
		}
	}

	miss := spec.missingSet()
	layout := spec.dateFormat()

	var targetVals []float64
	numeric := make(map[string][]float64)
	labels := make(map[string][]string)
	dates := make(map[string][]time.Time)
	dropped := 0

rows:
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}

		// Parse the whole row before committing any column so a drop
		// never leaves ragged columns.
		var (
			rowNumeric = make(map[string]float64, len(numeric))
			rowLabels  = make(map[string]string, len(labels))
			rowDates   = make(map[string]time.Time, len(dates))
			rowTarget  float64
		)

		raw := record[colIdx[spec.Target]]
		switch raw {
		case spec.Positive:
			rowTarget = 1
		case spec.Negative:
			rowTarget = 0
		default:
			dropped++
			continue rows
		}

		for _, c := range spec.Columns {
			cell := record[colIdx[c.Name]]
			if miss[cell] {
				dropped++
				continue rows
			}
			switch c.Kind {
			case KindNumeric:
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					dropped++
					continue rows
				}
				rowNumeric[c.Name] = v
			case KindCategorical:
				rowLabels[c.Name] = cell
			case KindDate:
				t, err := time.Parse(layout, cell)
				if err != nil {
					dropped++
					continue rows
				}
				rowDates[c.Name] = t
			}
		}

		targetVals = append(targetVals, rowTarget)
		for name, v := range rowNumeric {
			numeric[name] = append(numeric[name], v)
		}
		for name, v := range rowLabels {
			labels[name] = append(labels[name], v)
		}
		for name, v := range rowDates {
			dates[name] = append(dates[name], v)
		}
	}

	if len(targetVals) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "LoadCSV: no complete rows")
	}
	if dropped > 0 {
		slog.Warn("dropped incomplete rows",
			slog.Int("rows_dropped", dropped),
			slog.Int("rows_kept", len(targetVals)))
	}

	cols := make([]ColumnData, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		cd := ColumnData{Column: c}
		switch c.Kind {
		case KindNumeric:
			cd.Numeric = numeric[c.Name]
		case KindCategorical:
			cd.Labels = labels[c.Name]
		case KindDate:
			cd.Dates = dates[c.Name]
		}
		cols = append(cols, cd)
	}

	target := Target{
		Name:     spec.Target,
		Negative: spec.Negative,
		Positive: spec.Positive,
		Values:   targetVals,
	}
	return New(target, cols...)
}
