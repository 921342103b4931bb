package cvm

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// FetchMonthly downloads the daily report for one year-month
// (modern era, 2017 onward): inf_diario_fi_YYYYMM.csv.
func (c *Client) FetchMonthly(ctx context.Context, p model.Period) (*RawTable, error) {
	url := fmt.Sprintf("%s/inf_diario_fi_%s.csv", c.baseURL, p.Key())

	body, err := c.doWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	tbl, err := parseTableBytes(body, p)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	c.logger.Debug("fetched monthly report", "period", p.String(), "rows", len(tbl.Rows))
	return tbl, nil
}

// legacyNamePattern extracts the year-month from file names inside the
// yearly archives, e.g. inf_diario_fi_200501.csv.
var legacyNamePattern = regexp.MustCompile(`inf_diario_fi_(\d{4})(\d{2})\.csv$`)

// FetchYearly downloads the legacy yearly archive (pre-2017):
// HIST/inf_diario_fi_YYYY.zip, one CSV per month inside. Each inner
// file becomes its own RawTable tagged with the month it covers.
func (c *Client) FetchYearly(ctx context.Context, year int) ([]RawTable, error) {
	url := fmt.Sprintf("%s/HIST/inf_diario_fi_%04d.zip", c.baseURL, year)

	body, err := c.doWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", url, err)
	}

	var tables []RawTable
	for _, f := range zr.File {
		period := model.Period{Year: year, Month: time.January}
		if m := legacyNamePattern.FindStringSubmatch(f.Name); m != nil {
			y, _ := strconv.Atoi(m[1])
			mth, _ := strconv.Atoi(m[2])
			period = model.Period{Year: y, Month: time.Month(mth)}
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", f.Name, url, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", f.Name, url, err)
		}

		tbl, err := parseTableBytes(data, period)
		if err != nil {
			return nil, fmt.Errorf("parse %s in %s: %w", f.Name, url, err)
		}
		tables = append(tables, *tbl)
	}

	c.logger.Debug("fetched yearly archive", "year", year, "files", len(tables))
	return tables, nil
}
