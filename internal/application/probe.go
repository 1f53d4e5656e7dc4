package application

import (
	"context"
	"errors"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/featureservice"
	"go.uber.org/zap"
)

type MetadataFetcher interface {
	Metadata(ctx context.Context, serviceURL string) (domain.ServiceDescriptor, error)
}

type ItemResolver interface {
	ItemURL(ctx context.Context, portal, itemID string) (string, error)
}

type Outcome string

const (
	OutcomeFound        Outcome = "found"
	OutcomeNetwork      Outcome = "network_failure"
	OutcomeHTTPStatus   Outcome = "http_status"
	OutcomeServiceError Outcome = "service_error"
	OutcomeAuthRequired Outcome = "auth_required"
	OutcomeInvalidURL   Outcome = "invalid_url"
	OutcomeEmpty        Outcome = "empty"
	OutcomeInvalid      Outcome = "invalid_response"
)

type Attempt struct {
	URL     string  `json:"url"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
	err     error
}

type ProbeResult struct {
	Found    bool                     `json:"found"`
	URL      string                   `json:"url,omitempty"`
	Service  domain.ServiceDescriptor `json:"service"`
	Attempts []Attempt                `json:"attempts"`
}

// Err returns the error of the last failed attempt, or domain.ErrEmptyResult
// when there were no candidates at all.
func (r ProbeResult) Err() error {
	if r.Found {
		return nil
	}
	if n := len(r.Attempts); n > 0 && r.Attempts[n-1].err != nil {
		return r.Attempts[n-1].err
	}
	return domain.ErrEmptyResult
}

type ServiceProbe struct {
	log     *zap.SugaredLogger
	fetcher MetadataFetcher
	metrics *Metrics
}

func NewServiceProbe(log *zap.SugaredLogger, fetcher MetadataFetcher, metrics *Metrics) *ServiceProbe {
	return &ServiceProbe{log: log, fetcher: fetcher, metrics: metrics}
}

// Probe tries candidates in order and stops at the first service declaring at
// least one layer. Each candidate is requested once.
func (p *ServiceProbe) Probe(ctx context.Context, candidates []string) ProbeResult {
	res := ProbeResult{Attempts: make([]Attempt, 0, len(candidates))}
	for _, u := range candidates {
		if ctx.Err() != nil {
			break
		}
		desc, err := p.fetcher.Metadata(ctx, u)
		attempt := Attempt{URL: u, Outcome: classify(err), err: err}
		if err != nil {
			attempt.Error = err.Error()
		}
		res.Attempts = append(res.Attempts, attempt)
		p.metrics.probeAttempt(attempt.Outcome)
		p.logAttempt(attempt)
		if err == nil {
			res.Found = true
			res.URL = u
			res.Service = desc
			return res
		}
	}
	return res
}

func (p *ServiceProbe) logAttempt(a Attempt) {
	switch a.Outcome {
	case OutcomeFound:
		p.log.Infow("feature service found", "url", a.URL)
	case OutcomeAuthRequired:
		p.log.Warnw("feature service requires authentication", "url", a.URL, zap.Error(a.err))
	case OutcomeInvalidURL:
		p.log.Infow("invalid feature service url", "url", a.URL, zap.Error(a.err))
	case OutcomeServiceError:
		p.log.Warnw("feature service error", "url", a.URL, zap.Error(a.err))
	default:
		p.log.Debugw("feature service probe failed", "url", a.URL, "outcome", a.Outcome, zap.Error(a.err))
	}
}

func classify(err error) Outcome {
	if err == nil {
		return OutcomeFound
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		switch {
		case se.AuthRequired():
			return OutcomeAuthRequired
		case se.InvalidURL():
			return OutcomeInvalidURL
		}
		return OutcomeServiceError
	}
	var status *featureservice.StatusError
	switch {
	case errors.Is(err, domain.ErrEmptyResult):
		return OutcomeEmpty
	case errors.As(err, &status):
		return OutcomeHTTPStatus
	case errors.Is(err, domain.ErrNetworkFailure):
		return OutcomeNetwork
	}
	return OutcomeInvalid
}

// ResolveItems looks up the service URL of each portal item. Items that
// cannot be resolved are logged and skipped.
func (p *ServiceProbe) ResolveItems(ctx context.Context, resolver ItemResolver, portal string, items []domain.SourceItem) []string {
	urls := []string{}
	if resolver == nil || portal == "" {
		return urls
	}
	for _, item := range items {
		u, err := resolver.ItemURL(ctx, portal, item.ID)
		if err != nil {
			p.log.Infow("item lookup failed", "item", item.ID, zap.Error(err))
			continue
		}
		p.log.Infow("item service url", "item", item.ID, "url", u)
		urls = append(urls, u)
	}
	return urls
}
