package dataspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/registry"
	"github.com/rec-operation/lem-api/infra/logger"
)

// IndataConfig carries the INDATA connector's access parameters.
type IndataConfig struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
	Timeout string `json:"timeout"`
}

// SetDefaults applies the default connector tuning.
func (c *IndataConfig) SetDefaults() {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

// Validate checks the connector configuration.
func (c *IndataConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("indata: base_url is required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("indata: invalid timeout: %w", err)
	}
	return nil
}

// indataChunk bounds one request; the endpoint caps responses at 1500 points
// and the data can be second-granular.
const indataChunk = 25 * time.Minute

// IndataClient retrieves instantaneous power measurements from the INDATA
// living-lab endpoint.
type IndataClient struct {
	cfg  IndataConfig
	http *http.Client
	log  logger.Logger
}

// NewIndataClient builds a client from the connector configuration.
func NewIndataClient(cfg IndataConfig, log logger.Logger) *IndataClient {
	cfg.SetDefaults()
	timeout, _ := time.ParseDuration(cfg.Timeout)
	if log == nil {
		log = logger.NopLogger{}
	}
	return &IndataClient{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

type indataResponse struct {
	Data []struct {
		Datetime time.Time `json:"datetime"`
		Value    float64   `json:"value"`
		Unit     string    `json:"unit"`
	} `json:"data"`
}

// FetchMeter returns the meter's consumption and generation energy per
// horizon step, with a per-step availability mask. found is false when the
// dataspace has no data at all for the meter.
func (c *IndataClient) FetchMeter(ctx context.Context, meterID string, horizon []time.Time) (ec, eg []float64, covered []bool, found bool, err error) {
	phase, ok := registry.INDATAPhaseOf(meterID)
	if !ok {
		return nil, nil, nil, false, fmt.Errorf("%s is not a valid meter_id", meterID)
	}
	if len(horizon) == 0 {
		return nil, nil, nil, false, fmt.Errorf("empty horizon")
	}

	// one spare step on each side helps interpolation at the limits
	bufStart := horizon[0].Add(-model.Step)
	bufEnd := horizon[len(horizon)-1].Add(2 * model.Step)

	var samples []sample
	for from := bufStart; from.Before(bufEnd); from = from.Add(indataChunk) {
		to := from.Add(indataChunk)
		if to.After(bufEnd) {
			to = bufEnd
		}
		chunk, err := c.fetchChunk(ctx, meterID, phase, from, to)
		if err != nil {
			return nil, nil, nil, false, err
		}
		samples = append(samples, chunk...)
	}
	if len(samples) == 0 {
		return nil, nil, nil, false, nil
	}

	buckets := bucketize(samples, horizon)
	watts, covered := resampleMean(buckets, horizon)

	// instantaneous power (W) to energy (kWh) per 15-minute step
	ec = make([]float64, len(horizon))
	eg = make([]float64, len(horizon))
	for i, w := range watts {
		energy := w * model.DeltaT / 1000
		if energy >= 0 {
			ec[i] = energy
		} else {
			eg[i] = -energy
		}
	}
	return ec, eg, covered, true, nil
}

func (c *IndataClient) fetchChunk(ctx context.Context, meterID, phase string, from, to time.Time) ([]sample, error) {
	q := url.Values{}
	q.Set("shelly_id", meterID)
	q.Set("phase", phase)
	q.Set("parameter", "active_power")
	q.Set("start_date", from.UTC().Format(apiTimeLayout))
	q.Set("end_date", to.UTC().Format(apiTimeLayout))

	endpoint := c.cfg.BaseURL + "/dataspace/inesctec/observed/ceve_living-lab/metering/energy?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Token "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting INDATA data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var payload indataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding INDATA response: %w", err)
	}

	samples := make([]sample, 0, len(payload.Data))
	for _, d := range payload.Data {
		// power and energy streams share the endpoint; keep watts only
		if d.Unit != "W" {
			continue
		}
		samples = append(samples, sample{ts: d.Datetime.UTC(), value: d.Value})
	}
	return samples, nil
}
