package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/generator"
	httpinterceptor "github.com/kinkando/family-task-service/pkg/http/interceptor"
	"github.com/kinkando/family-task-service/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const CorrelationIDHeader = "X-Correlation-ID"

// refreshTimeout bounds a shared refresh call, which runs detached from any one caller.
const refreshTimeout = 30 * time.Second

// Fetcher sends requests with the caller's session cookies and recovers from an expired access
// credential by calling the refresh endpoint and retrying, at most maxRetries times per call.
// Concurrent calls that hit 401 together share one refresh request per endpoint.
type Fetcher struct {
	client   *http.Client
	options  options
	inflight singleflight.Group
}

// New creates a Fetcher. A nil client gets a cookie jar and the rate limited transport.
func New(client *http.Client, opts ...Option) (*Fetcher, error) {
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: create cookie jar: %w", err)
		}
		client = &http.Client{
			Jar:       jar,
			Transport: httpinterceptor.NewRateLimiterTransport(),
		}
	}

	return &Fetcher{
		client:  client,
		options: defaultOptions().with(opts...),
	}, nil
}

// Request builds a request and hands it to Do.
func (f *Fetcher) Request(ctx context.Context, method, rawURL string, body io.Reader, opts ...Option) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	return f.Do(req, opts...)
}

// Do sends req. Non-401 responses are returned as they are. A 401 that cannot be recovered ends in
// the session-expired hook and then either a *SessionExpiredError or the 401 response itself.
func (f *Fetcher) Do(req *http.Request, opts ...Option) (*http.Response, error) {
	o := f.options.with(opts...)
	ctx := req.Context()

	correlationID := o.correlationID
	if correlationID == "" {
		correlationID = req.Header.Get(CorrelationIDHeader)
	}
	if correlationID == "" {
		correlationID = generator.UUID()
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)

	if err := replayable(req); err != nil {
		return nil, err
	}

	for retries := 0; ; retries++ {
		attempt, err := prepare(ctx, req, correlationID)
		if err != nil {
			return nil, err
		}

		res, err := f.client.Do(attempt)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusUnauthorized {
			return res, nil
		}

		code, err := bufferUnauthorized(res)
		if err != nil {
			return nil, err
		}

		if !o.enableRefresh || retries >= o.maxRetries {
			logger.Context(ctx).Infof("httpclient: %s %s unauthorized, no refresh attempts left", req.Method, req.URL.Path)
			return f.sessionExpired(ctx, o, res, code, nil)
		}

		if refreshErr := f.refresh(ctx, req.URL, o.refreshEndpoint, correlationID); refreshErr != nil {
			if o.onRefreshError != nil {
				o.onRefreshError(ctx, refreshErr)
			}
			return f.sessionExpired(ctx, o, res, refreshErr.Code, refreshErr)
		}

		logger.Context(ctx).Debugf("httpclient: session refreshed, retrying %s %s", req.Method, req.URL.Path)
	}
}

func (f *Fetcher) sessionExpired(ctx context.Context, o options, res *http.Response, code model.ErrorCode, cause error) (*http.Response, error) {
	o.onSessionExpired(ctx, code, o.loginURL)
	if !o.throwOnSessionExpiry {
		return res, nil
	}
	_ = res.Body.Close()
	return nil, &SessionExpiredError{Code: code, RedirectURL: o.loginURL, Cause: cause}
}

func (f *Fetcher) refresh(ctx context.Context, base *url.URL, endpoint, correlationID string) *RefreshTokenError {
	target, err := base.Parse(endpoint)
	if err != nil {
		return &RefreshTokenError{Code: model.ErrorCodeUnknown, Err: err}
	}

	// The shared call must not be aborted when the caller that started it goes away.
	v, _, shared := f.inflight.Do(target.String(), func() (interface{}, error) {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return f.callRefresh(detached, target.String(), correlationID), nil
	})

	refreshErr, _ := v.(*RefreshTokenError)
	if shared {
		logger.Context(ctx).Debugf("httpclient: joined in-flight refresh (failed=%t)", refreshErr != nil)
	}
	return refreshErr
}

func (f *Fetcher) callRefresh(ctx context.Context, target, correlationID string) *RefreshTokenError {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return &RefreshTokenError{Code: model.ErrorCodeUnknown, Err: err}
	}
	req.Header.Set(CorrelationIDHeader, correlationID)
	req.Header.Set("Accept", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		logger.Context(ctx).Error(err)
		return &RefreshTokenError{Code: model.ErrorCodeUnknown, Err: err}
	}
	defer res.Body.Close()

	body := decodeSessionResponse(res.Body)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	code := body.ErrorCode
	if code == "" {
		code = model.ErrorCodeUnknown
	}
	logger.Context(ctx).Warnf("httpclient: refresh answered %d %s", res.StatusCode, code)
	return &RefreshTokenError{StatusCode: res.StatusCode, Code: code, Message: body.Message}
}

// replayable makes sure every attempt can resend the original body.
func replayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	payload, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("httpclient: buffer request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func prepare(ctx context.Context, req *http.Request, correlationID string) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		attempt.Body = body
	}
	attempt.Header.Set(CorrelationIDHeader, correlationID)
	return attempt, nil
}

// bufferUnauthorized reads the 401 body so it can still be returned to the caller, and extracts
// the server's errorCode. A body without one yields UNKNOWN_ERROR.
func bufferUnauthorized(res *http.Response) (model.ErrorCode, error) {
	payload, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if err != nil {
		return "", fmt.Errorf("httpclient: read unauthorized response: %w", err)
	}
	res.Body = io.NopCloser(bytes.NewReader(payload))

	code := decodeSessionResponse(bytes.NewReader(payload)).ErrorCode
	if code == "" {
		code = model.ErrorCodeUnknown
	}
	return code, nil
}

func decodeSessionResponse(r io.Reader) model.SessionResponse {
	var body model.SessionResponse
	_ = json.NewDecoder(r).Decode(&body)
	return body
}
