package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"golang.org/x/time/rate"
)

const (
	// SourceORS marks estimates returned by OpenRouteService.
	SourceORS = "ors"

	defaultORSBaseURL = "https://api.openrouteservice.org"
	defaultORSProfile = "driving-car"
	maxAttempts       = 4
)

// ORSConfig configures the OpenRouteService client.
type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string

	// RatePerSecond caps outgoing requests; retries count against it too.
	// Zero disables the limiter.
	RatePerSecond float64

	HTTPClient *http.Client
}

// ORSEstimator asks the OpenRouteService directions API for road distance and
// duration. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff. It is safe for concurrent use.
type ORSEstimator struct {
	session *http.Client
	apiKey  string
	url     string
	limiter *rate.Limiter
	backoff time.Duration
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ors: status %d: %s", e.Code, e.Body)
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

func NewORSEstimator(cfg ORSConfig) (*ORSEstimator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}
	profile := cfg.Profile
	if profile == "" {
		profile = defaultORSProfile
	}
	session := cfg.HTTPClient
	if session == nil {
		session = &http.Client{Timeout: 10 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &ORSEstimator{
		session: session,
		apiKey:  cfg.APIKey,
		url:     baseURL + "/v2/directions/" + profile,
		limiter: limiter,
		backoff: 200 * time.Millisecond,
	}, nil
}

func (o *ORSEstimator) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	// ORS expects [lng, lat] pairs.
	payload, err := json.Marshal(directionsRequest{Coordinates: [][2]float64{
		{from.Lng(), from.Lat()},
		{to.Lng(), to.Lat()},
	}})
	if err != nil {
		return ports.DistanceEstimate{}, fmt.Errorf("encode ors request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, payload)
	})
	if err != nil {
		return ports.DistanceEstimate{}, err
	}
	defer resp.Body.Close()

	var body directionsResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.DistanceEstimate{}, fmt.Errorf("decode ors response: %w", err)
	}
	if len(body.Routes) == 0 {
		return ports.DistanceEstimate{}, errors.New("ors returned no route")
	}

	summary := body.Routes[0].Summary
	return ports.DistanceEstimate{
		Meters:   summary.Distance,
		Duration: time.Duration(summary.Duration * float64(time.Second)),
		Source:   SourceORS,
	}, nil
}

func (o *ORSEstimator) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (o *ORSEstimator) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures with exponential backoff while
// respecting context cancellation.
func (o *ORSEstimator) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := o.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
