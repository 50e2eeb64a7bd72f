package eds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/httputil"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Client pulls records from the Energi Data Service API. Every dataset
// endpoint is paginated; FetchX pages through the window and delivers
// each decoded page to the caller's sink as it arrives, so a restart is
// simply a re-issue of the same call and a mid-window failure keeps the
// pages already delivered.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	pageSize   int
	logger     *logger.Logger
}

// NewClient creates an Energi Data Service client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.Source.BaseURL,
		pageSize:   cfg.Source.PageSize,
		logger:     log.WithField("module", "eds"),
	}
}

// Timestamp layouts the API is known to emit. Timestamps are wall-clock
// values without zone suffix; UTC columns are UTC, DK columns are local.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fetchPages retrieves every page of a dataset for the window, handing
// each raw page to handle as it arrives. A fetch failure is wrapped as
// SourceUnavailableError; a handle error is returned unwrapped so store
// failures keep their own identity.
func fetchPages[T any](ctx context.Context, c *Client, dataset contracts.Dataset, window contracts.DateWindow, handle func([]T) error) error {
	offset := 0

	for {
		page, total, err := fetchPage[T](ctx, c, dataset, window, offset)
		if err != nil {
			return &contracts.SourceUnavailableError{Dataset: dataset, Err: err}
		}

		if len(page) > 0 {
			if err := handle(page); err != nil {
				return err
			}
		}

		c.logger.WithFields(map[string]interface{}{
			"dataset": dataset,
			"offset":  offset,
			"count":   len(page),
			"total":   total,
		}).Debug("Fetched page")

		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}

	return nil
}

// fetchPage retrieves a single page.
func fetchPage[T any](ctx context.Context, c *Client, dataset contracts.Dataset, window contracts.DateWindow, offset int) ([]T, int, error) {
	params := url.Values{}
	params.Set("start", window.Start.Format("2006-01-02"))
	params.Set("end", window.End.Format("2006-01-02"))
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("limit", fmt.Sprintf("%d", c.pageSize))

	fullURL := fmt.Sprintf("%s/dataset/%s?%s", c.baseURL, dataset, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s page at offset %d: %w", dataset, offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, dataset)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	var envelope pagedResponse[T]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode %s response: %w", dataset, err)
	}

	return envelope.Records, envelope.Total, nil
}

// FetchCO2 pulls the 5-minute CO2 intensity stream for the window.
func (c *Client) FetchCO2(ctx context.Context, window contracts.DateWindow, sink func([]contracts.RawCO2Record) error) error {
	var kept, dropped int
	err := fetchPages(ctx, c, contracts.DatasetCO2, window, func(rows []co2Row) error {
		records := make([]contracts.RawCO2Record, 0, len(rows))
		for _, row := range rows {
			utc, okUTC := parseTimestamp(row.Minutes5UTC)
			local, okLocal := parseTimestamp(row.Minutes5DK)
			if !okUTC || !okLocal || row.CO2Emission == nil {
				dropped++
				continue
			}
			records = append(records, contracts.RawCO2Record{
				TimestampUTC:   utc,
				TimestampLocal: local,
				PriceArea:      row.PriceArea,
				CO2Emission:    *row.CO2Emission,
			})
		}
		kept += len(records)
		if len(records) == 0 {
			return nil
		}
		return sink(records)
	})
	if err != nil {
		return err
	}

	c.logFetch(contracts.DatasetCO2, kept, dropped)
	return nil
}

// FetchProduction pulls the hourly settlement production stream.
// Missing technology bands decode as zero production.
func (c *Client) FetchProduction(ctx context.Context, window contracts.DateWindow, sink func([]contracts.RawProductionRecord) error) error {
	var kept, dropped int
	err := fetchPages(ctx, c, contracts.DatasetProduction, window, func(rows []productionRow) error {
		records := make([]contracts.RawProductionRecord, 0, len(rows))
		for _, row := range rows {
			utc, okUTC := parseTimestamp(row.HourUTC)
			local, okLocal := parseTimestamp(row.HourDK)
			if !okUTC || !okLocal {
				dropped++
				continue
			}
			records = append(records, contracts.RawProductionRecord{
				TimestampUTC:        utc,
				TimestampLocal:      local,
				PriceArea:           row.PriceArea,
				OffshoreWindLt100MW: deref(row.OffshoreWindLt100MWMWh),
				OffshoreWindGe100MW: deref(row.OffshoreWindGe100MWMWh),
				OnshoreWindLt50kW:   deref(row.OnshoreWindLt50kWMWh),
				OnshoreWindGe50kW:   deref(row.OnshoreWindGe50kWMWh),
				SolarLt10kW:         deref(row.SolarPowerLt10kWMWh),
				SolarGe10Lt40kW:     deref(row.SolarPowerGe10Lt40kWMWh),
				SolarGe40kW:         deref(row.SolarPowerGe40kWMWh),
				Hydro:               deref(row.HydroPowerMWh),
				CentralPower:        deref(row.CentralPowerMWh),
				LocalPower:          deref(row.LocalPowerMWh),
				GrossConsumption:    deref(row.GrossConsumptionMWh),
			})
		}
		kept += len(records)
		if len(records) == 0 {
			return nil
		}
		return sink(records)
	})
	if err != nil {
		return err
	}

	c.logFetch(contracts.DatasetProduction, kept, dropped)
	return nil
}

// FetchPrices pulls the hourly spot price stream.
func (c *Client) FetchPrices(ctx context.Context, window contracts.DateWindow, sink func([]contracts.RawPriceRecord) error) error {
	var kept, dropped int
	err := fetchPages(ctx, c, contracts.DatasetPrices, window, func(rows []priceRow) error {
		records := make([]contracts.RawPriceRecord, 0, len(rows))
		for _, row := range rows {
			utc, okUTC := parseTimestamp(row.HourUTC)
			local, okLocal := parseTimestamp(row.HourDK)
			if !okUTC || !okLocal || row.SpotPriceEUR == nil {
				dropped++
				continue
			}
			records = append(records, contracts.RawPriceRecord{
				TimestampUTC:   utc,
				TimestampLocal: local,
				PriceArea:      row.PriceArea,
				SpotPriceDKK:   deref(row.SpotPriceDKK),
				SpotPriceEUR:   *row.SpotPriceEUR,
			})
		}
		kept += len(records)
		if len(records) == 0 {
			return nil
		}
		return sink(records)
	})
	if err != nil {
		return err
	}

	c.logFetch(contracts.DatasetPrices, kept, dropped)
	return nil
}

func (c *Client) logFetch(dataset contracts.Dataset, kept, dropped int) {
	fields := map[string]interface{}{
		"dataset": dataset,
		"count":   kept,
	}
	if dropped > 0 {
		fields["undecodable"] = dropped
	}
	c.logger.WithFields(fields).Info("Fetched dataset window")
}
