// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/recommender/internal/cache"
	"github.com/tomtom215/recommender/internal/metrics"
	"github.com/tomtom215/recommender/internal/recommend"
)

// Remote engine endpoints. {user} is replaced by the user id.
const (
	remoteRecommendPath = "/recommend/{user}"
	remoteStatusPath    = "/recommend/{user}/status"
	remoteListPath      = "/corpus/list/"

	// maxRemoteBody bounds remote responses.
	maxRemoteBody = 4 << 20

	// consumedCapacity bounds the per-user record of consumed results. A
	// user evicted from it is treated as never having consumed a result.
	consumedCapacity = 50000
	consumedTTL      = 7 * 24 * time.Hour
)

var errRemoteNotConfigured = errors.New("remote engine url is not configured")

type remoteRecommendation struct {
	ContentID int64   `json:"contentId"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

type remoteRecommendations struct {
	Count           int                    `json:"numberOfRecommendations"`
	CacheID         string                 `json:"cacheId"`
	Recommendations []remoteRecommendation `json:"recommendations"`
}

type remoteStatus struct {
	InProgress bool   `json:"inProgress"`
	LastRecID  string `json:"lastRecId"`
}

// RemoteEngine nominates and scores content computed by a remote
// recommendation engine. Calls go through a rate limiter and a circuit
// breaker; a scheduler-driven run waits until the engine has produced a
// result newer than the last one consumed.
//
// Options: "url" (base url), "rate" (requests per second, default 5),
// "burst" (default 10).
type RemoteEngine struct {
	recommend.Base
	catalog recommend.Catalog
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	cbName  string

	consumed *cache.LRU[int64, string]
}

// NewRemoteEngine is the remote_engine factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewRemoteEngine(env recommend.Env, catalog recommend.Catalog, client *http.Client) (*RemoteEngine, error) {
	if catalog == nil {
		return nil, errors.New("remote_engine: catalog is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	p := &RemoteEngine{
		Base:    recommend.NewBase(env),
		catalog: catalog,
		client:  client,
	}
	p.consumed = cache.New[int64, string](consumedCapacity, consumedTTL, cache.WithClock(p.Now))
	p.baseURL = strings.TrimRight(p.Option("url", ""), "/")
	if p.baseURL != "" {
		if _, err := url.Parse(p.baseURL); err != nil {
			return nil, fmt.Errorf("remote_engine: invalid url: %w", err)
		}
	}

	rps, err := strconv.ParseFloat(p.Option("rate", "5"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("remote_engine: invalid rate %q", p.Option("rate", ""))
	}
	burst, err := strconv.Atoi(p.Option("burst", "10"))
	if err != nil || burst <= 0 {
		return nil, fmt.Errorf("remote_engine: invalid burst %q", p.Option("burst", ""))
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	p.cbName = "remote-engine-" + env.PluginID
	metrics.CircuitBreakerState.WithLabelValues(p.cbName).Set(0)
	p.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        p.cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.Logger().Info().Str("from", from.String()).Str("to", to.String()).Msg("remote engine circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return p, nil
}

func (p *RemoteEngine) GenerateCandidates(ctx context.Context, user *recommend.User) ([]recommend.Content, error) {
	params := url.Values{"numRecs": {strconv.Itoa(p.NumberCandidates())}}
	var recs remoteRecommendations
	if err := p.getJSON(ctx, p.userPath(remoteRecommendPath, user.ID)+"?"+params.Encode(), &recs); err != nil {
		return nil, err
	}

	reason := p.Reason("recommended for you")
	var out []recommend.Content
	for _, rec := range recs.Recommendations {
		content, err := p.catalog.Content(ctx, rec.ContentID)
		if errors.Is(err, recommend.ErrNotFound) {
			p.Logger().Debug().Int64("content_id", rec.ContentID).Msg("remote engine returned unknown content")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("content %d: %w", rec.ContentID, err)
		}
		if !content.Published {
			continue
		}
		r := reason
		if rec.Reason != "" && p.Settings().Reason == "" {
			r = rec.Reason
		}
		if err := p.Stash(ctx, user.ID, content.ID, rec.Score, r); err != nil {
			return nil, err
		}
		out = append(out, *content)
	}

	p.consumed.Add(user.ID, recs.CacheID)
	return out, nil
}

func (p *RemoteEngine) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) error {
	return p.Confirm(ctx, set, user)
}

// UserRecommendationsReady reports whether the engine finished a result
// this plugin has not consumed yet. Failures count as not ready.
func (p *RemoteEngine) UserRecommendationsReady(ctx context.Context, user *recommend.User) (bool, error) {
	var st remoteStatus
	if err := p.getJSON(ctx, p.userPath(remoteStatusPath, user.ID), &st); err != nil {
		return false, err
	}
	if st.InProgress || st.LastRecID == "" {
		return false, nil
	}
	last, _ := p.consumed.Get(user.ID)
	return st.LastRecID != last, nil
}

// Health probes the engine's corpus listing.
func (p *RemoteEngine) Health(ctx context.Context) (ok bool, description string) {
	if p.baseURL == "" {
		return false, "Remote engine not configured. Set the url option."
	}
	if _, err := p.get(ctx, remoteListPath); err != nil {
		return false, fmt.Sprintf("Remote engine at %s failed status check: %v", p.baseURL, err)
	}
	return true, "Ready to use."
}

func (p *RemoteEngine) userPath(tmpl string, userID int64) string {
	return strings.ReplaceAll(tmpl, "{user}", strconv.FormatInt(userID, 10))
}

func (p *RemoteEngine) getJSON(ctx context.Context, path string, v any) error {
	body, err := p.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// get performs a rate limited GET through the circuit breaker.
func (p *RemoteEngine) get(ctx context.Context, path string) ([]byte, error) {
	if p.baseURL == "" {
		return nil, errRemoteNotConfigured
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := p.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return data, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(p.cbName, "rejected").Inc()
		return nil, fmt.Errorf("remote engine unavailable: %w", err)
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(p.cbName, "failure").Inc()
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(p.cbName, "success").Inc()
	return body, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var (
	_ recommend.Generator        = (*RemoteEngine)(nil)
	_ recommend.Scorer           = (*RemoteEngine)(nil)
	_ recommend.ReadinessChecker = (*RemoteEngine)(nil)
	_ recommend.HealthReporter   = (*RemoteEngine)(nil)
)
