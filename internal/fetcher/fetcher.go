// Package fetcher issues the throttled, retried http requests every scraping
// step goes through.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/fetcher")

const (
	report_fetcher_fetch = "fetcher.fetch"
	report_fetcher_retry = "fetcher.retry"
)

// Request describes a single outbound call.
type Request struct {
	Method  string
	Url     string
	Headers map[string]string
	// Form is sent url-encoded as the body of a POST.
	Form url.Values
}

type Options struct {
	// Headers are sent with every request of the session.
	Headers   map[string]string
	UserAgent string
	// Cookie is a pre-obtained session cookie header value.
	Cookie string
	// Proxy is a proxy url like "http://ip:port".
	Proxy      string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  *RateLimit
	// NewBackOff creates the delay policy between retries, it defaults to
	// randomized exponential backoff.
	NewBackOff func() backoff.BackOff
	// BypassCloudflare wraps the transport to look like a regular browser.
	BypassCloudflare bool
	// DumpHttp receives request/response transcripts when non-nil.
	DumpHttp telemetry.InstrumentOutput
}

// Fetcher is not safe for concurrent use, the pipeline is sequential.
type Fetcher struct {
	http       *resty.Client
	rateLimit  *RateLimit
	maxRetries int
	newBackOff func() backoff.BackOff
	tel        telemetry.API

	// reached is set once any response has come back from the remote host.
	reached bool
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func New(opts Options, tel telemetry.API) (*Fetcher, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fetcher", tel)

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	if opts.Proxy != "" {
		proxyUrl, err := url.Parse(opts.Proxy)
		if err != nil || proxyUrl.Host == "" {
			return nil, fmt.Errorf("%w: bad proxy %q", ErrInvalidRequest, opts.Proxy)
		}
		client.SetProxy(opts.Proxy)
	}
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	client.SetHeaders(opts.Headers)
	if opts.Cookie != "" {
		client.SetHeader("Cookie", opts.Cookie)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	rateLimit := opts.RateLimit
	if rateLimit == nil {
		rateLimit = NewRateLimit(0, 0, 0)
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimit.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel, opts.DumpHttp)

	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Fetcher{
		http:       client,
		rateLimit:  rateLimit,
		maxRetries: maxRetries,
		newBackOff: newBackOff,
		tel:        tel,
	}, nil
}

func validate(req Request) error {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, req.Method)
	}
	parsed, err := url.Parse(req.Url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: url %q is not an absolute http(s) url", ErrInvalidRequest, req.Url)
	}
	return nil
}

// Fetch performs the request and returns the raw response body, retrying
// non-2xx responses and network errors. Exhausting the retries returns a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.Url),
	)

	err := validate(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	attempts := 0
	status := 0
	operation := func() ([]byte, error) {
		attempts++

		r := f.http.R().
			SetContext(ctx).
			SetHeaders(req.Headers)
		if req.Method == http.MethodPost && req.Form != nil {
			r.SetFormDataFromValues(req.Form)
		}

		res, err := r.Execute(req.Method, req.Url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			status = 0
			return nil, err
		}

		f.reached = true
		status = res.StatusCode()
		if status < 200 || status >= 300 {
			return nil, StatusError{Status: status}
		}
		return res.Body(), nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(f.newBackOff(), uint64(f.maxRetries)),
		ctx,
	)
	body, err := backoff.RetryNotifyWithData(operation, policy, func(err error, next time.Duration) {
		f.tel.ReportWarning(report_fetcher_retry, req.Method, req.Url, attempts, next.String(), err)
	})
	if err != nil {
		fetchErr := &FetchError{
			Method:      req.Method,
			Url:         req.Url,
			Status:      status,
			Attempts:    attempts,
			Err:         err,
			unreachable: !f.reached && status == 0 && isTransportError(err),
		}
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "fetch failed")
		f.tel.ReportBroken(report_fetcher_fetch, fetchErr)
		return nil, fetchErr
	}

	span.SetAttributes(attribute.Int("http.attempts", attempts), attribute.Int("http.body_size", len(body)))
	return body, nil
}
