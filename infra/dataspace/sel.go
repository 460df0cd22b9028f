package dataspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/registry"
	"github.com/rec-operation/lem-api/infra/logger"
)

// SELConfig carries the SEL connector's access parameters.
type SELConfig struct {
	BaseURL  string `json:"base_url"`
	TokenURL string `json:"token_url"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Timeout  string `json:"timeout"`
}

// SetDefaults applies the default connector tuning.
func (c *SELConfig) SetDefaults() {
	if c.TokenURL == "" {
		c.TokenURL = "https://backoffice.smartenergylab.pt/api/token/"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

// Validate checks the connector configuration.
func (c *SELConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("sel: base_url is required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("sel: invalid timeout: %w", err)
	}
	return nil
}

// SELClient retrieves per-minute energy measurements from the SEL backoffice.
type SELClient struct {
	cfg  SELConfig
	http *http.Client
	log  logger.Logger
}

// NewSELClient builds a client from the connector configuration.
func NewSELClient(cfg SELConfig, log logger.Logger) *SELClient {
	cfg.SetDefaults()
	timeout, _ := time.ParseDuration(cfg.Timeout)
	if log == nil {
		log = logger.NopLogger{}
	}
	return &SELClient{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

type selDataPoint struct {
	Datetime time.Time `json:"datetime"`
	Energy   float64   `json:"energy"`
}

// FetchMeter returns the meter's consumption and generation energy per horizon
// step, with a per-step availability mask. found is false when the backoffice
// has no data at all for the meter.
func (c *SELClient) FetchMeter(ctx context.Context, meterID string, horizon []time.Time) (ec, eg []float64, covered []bool, found bool, err error) {
	sensors, ok := registry.SELSensorsOf(meterID)
	if !ok || len(horizon) == 0 {
		return nil, nil, nil, false, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, nil, nil, false, err
	}

	// one request covers a single civil day
	start := horizon[0]
	end := horizon[len(horizon)-1].Add(model.Step)

	var consumption, generation []sample
	for _, sensor := range sensors {
		for day := start.Truncate(24 * time.Hour); day.Before(end); day = day.Add(24 * time.Hour) {
			points, err := c.fetchDay(ctx, token, meterID, sensor, day)
			if err != nil {
				return nil, nil, nil, false, err
			}
			for _, p := range points {
				// the backoffice stamps each minute at its end
				s := sample{ts: p.Datetime.UTC().Add(-time.Minute), value: p.Energy}
				if sensor.DeviceType == "PV" {
					generation = append(generation, s)
				} else {
					consumption = append(consumption, s)
				}
			}
		}
	}
	if len(consumption) == 0 && len(generation) == 0 {
		return nil, nil, nil, false, nil
	}

	ec, ecCov := resampleSum(bucketize(consumption, horizon), horizon)
	eg, egCov := resampleSum(bucketize(generation, horizon), horizon)

	covered = make([]bool, len(horizon))
	hasPV := len(generation) > 0
	for i := range covered {
		covered[i] = ecCov[i] && (!hasPV || egCov[i])
	}
	return ec, eg, covered, true, nil
}

// accessToken exchanges the configured credentials for a short-lived token.
func (c *SELClient) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("email", c.cfg.Email)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting SEL token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding SEL token response: %w", err)
	}
	if payload.Access == "" {
		return "", fmt.Errorf("SEL token response without access token")
	}
	return payload.Access, nil
}

func (c *SELClient) fetchDay(ctx context.Context, token, meterID string, sensor registry.SELSensor, day time.Time) ([]selDataPoint, error) {
	q := url.Values{}
	q.Set("request_type", "fetch")
	q.Set("participant_permanent_code", meterID)
	q.Set("start_date", day.UTC().Format("2006-01-02"))
	q.Set("device_type", sensor.DeviceType)
	q.Set("access_token", token)

	endpoint := c.cfg.BaseURL + "/api/fetch-data?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("access-token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting SEL data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// missing days come back as errors; they surface later as missing steps
	if resp.StatusCode != http.StatusOK {
		c.log.Debugf("SEL %s/%s %s: status %d", meterID, sensor.DeviceType, day.Format("2006-01-02"), resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading SEL response: %w", err)
	}

	var payload struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding SEL response: %w", err)
	}
	raw, ok := payload.Data[sensor.DeviceType]
	if !ok {
		return nil, nil
	}

	var points []selDataPoint
	if err := json.Unmarshal(raw, &points); err == nil {
		return points, nil
	}

	// multiplexed streams nest the points one level deeper, keyed by sub
	// sensor ID; the registry entry can be stale, so any single key is taken
	var nested map[string][]selDataPoint
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("decoding SEL %s stream: %w", sensor.DeviceType, err)
	}
	if sensor.SubSensorID != nil {
		if pts, ok := nested[*sensor.SubSensorID]; ok {
			return pts, nil
		}
	}
	for _, pts := range nested {
		return pts, nil
	}
	return nil, nil
}
