package cvm

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/quantbr/fundsdb/internal/model"
)

// RawTable is one bulk file split into header and records, still
// untyped. Column sets vary across eras; mapping them to the canonical
// row shape is the normalizer's job.
type RawTable struct {
	Period model.Period // source period the file covers
	Header []string
	Rows   [][]string
}

// parseTable reads a semicolon-separated CVM file.
func parseTable(r io.Reader, period model.Period) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1 // a few historical files carry ragged rows
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		rows = append(rows, rec)
	}

	return &RawTable{Period: period, Header: header, Rows: rows}, nil
}

func parseTableBytes(data []byte, period model.Period) (*RawTable, error) {
	return parseTable(bytes.NewReader(data), period)
}
