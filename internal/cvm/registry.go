package cvm

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/quantbr/fundsdb/internal/model"
)

// FetchRegistry downloads the full fund registry (cad_fi.csv). The file
// is Latin-1 encoded on the portal and is transcoded to UTF-8 here so
// downstream code only ever sees UTF-8.
func (c *Client) FetchRegistry(ctx context.Context) (*RawTable, error) {
	body, err := c.doWithRetry(ctx, c.registryURL)
	if err != nil {
		return nil, err
	}

	decoder := charmap.ISO8859_1.NewDecoder()
	utf8, err := decoder.Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode registry charset: %w", err)
	}

	tbl, err := parseTable(bytes.NewReader(utf8), model.CurrentPeriod())
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	c.logger.Debug("fetched fund registry", "rows", len(tbl.Rows))
	return tbl, nil
}
