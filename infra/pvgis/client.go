// Package pvgis estimates PV generation profiles from the JRC PVGIS service.
package pvgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rec-operation/lem-api/core/registry"
	"github.com/rec-operation/lem-api/infra/logger"
)

// MaxYear is the last year covered by the PVGIS radiation databases. Later
// years reuse this year's profile.
const MaxYear = 2023

// Config carries the PVGIS client parameters.
type Config struct {
	BaseURL string `json:"base_url"`
	Timeout string `json:"timeout"`
}

// SetDefaults applies the public service endpoint and tuning.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://re.jrc.ec.europa.eu/api"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

// Validate checks the client configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("pvgis: invalid timeout: %w", err)
	}
	return nil
}

// Client queries the PVGIS hourly series endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// NewClient builds a client from the configuration.
func NewClient(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	timeout, _ := time.ParseDuration(cfg.Timeout)
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

type hourlyResponse struct {
	Outputs struct {
		Hourly []struct {
			Time string  `json:"time"`
			P    float64 `json:"P"`
		} `json:"hourly"`
	} `json:"outputs"`
}

// pvgisTimeLayout matches the service's compact hourly stamps, e.g.
// "20230101:0010".
const pvgisTimeLayout = "20060102:1504"

// GenerationFactors returns the per-step PV generation factor, in kWh per kWp
// installed, for the horizon at the given location. Profiles for years beyond
// MaxYear repeat the MaxYear profile.
func (c *Client) GenerationFactors(ctx context.Context, loc registry.Location, horizon []time.Time) ([]float64, error) {
	if len(horizon) == 0 {
		return nil, nil
	}
	startYear := clampYear(horizon[0].Year())
	endYear := clampYear(horizon[len(horizon)-1].Year())

	hourly, err := c.fetchHourly(ctx, loc, startYear, endYear)
	if err != nil {
		return nil, err
	}

	factors := make([]float64, len(horizon))
	for i, t := range horizon {
		t = t.UTC()
		hour := time.Date(clampYear(t.Year()), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
		p, ok := hourly[hour]
		if !ok && t.Month() == time.February && t.Day() == 29 {
			// leap day absent from the reference year's profile
			hour = hour.AddDate(0, 0, -1)
			p, ok = hourly[hour]
		}
		if !ok {
			return nil, fmt.Errorf("no PVGIS data for %s", hour.Format(time.RFC3339))
		}
		// hourly power in W from 1 kWp; held constant over the hour's steps
		factors[i] = p / 1000 * 0.25
	}
	return factors, nil
}

// fetchHourly retrieves the modeled power of a 1 kWp, lossless, free-mounted
// crystalline silicon installation, indexed by UTC hour.
func (c *Client) fetchHourly(ctx context.Context, loc registry.Location, startYear, endYear int) (map[time.Time]float64, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("startyear", strconv.Itoa(startYear))
	q.Set("endyear", strconv.Itoa(endYear))
	q.Set("pvcalculation", "1")
	q.Set("peakpower", "1")
	q.Set("pvtechchoice", "crystSi")
	q.Set("mountingplace", "free")
	q.Set("loss", "0")
	q.Set("angle", "0")
	q.Set("aspect", "0")
	q.Set("components", "1")
	q.Set("outputformat", "json")

	endpoint := c.cfg.BaseURL + "/seriescalc?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting PVGIS data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var payload hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding PVGIS response: %w", err)
	}

	hourly := make(map[time.Time]float64, len(payload.Outputs.Hourly))
	for _, h := range payload.Outputs.Hourly {
		// stamps land mid-hour, e.g. "20230101:0010"; floor to the hour
		ts, err := time.Parse(pvgisTimeLayout, h.Time)
		if err != nil {
			return nil, fmt.Errorf("decoding PVGIS timestamp %q: %w", h.Time, err)
		}
		hourly[ts.Truncate(time.Hour)] = h.P
	}
	if len(hourly) == 0 {
		return nil, fmt.Errorf("empty PVGIS response")
	}
	return hourly, nil
}

func clampYear(y int) int {
	if y > MaxYear {
		return MaxYear
	}
	return y
}
