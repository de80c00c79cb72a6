package httpclient

import (
	"context"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/logger"
)

const (
	DefaultRefreshEndpoint = "/auth/refresh"
	DefaultMaxRetries      = 1
	DefaultLoginURL        = "/login"
)

type options struct {
	enableRefresh        bool
	maxRetries           int
	refreshEndpoint      string
	onSessionExpired     func(ctx context.Context, code model.ErrorCode, redirectURL string)
	onRefreshError       func(ctx context.Context, err *RefreshTokenError)
	correlationID        string
	throwOnSessionExpiry bool
	loginURL             string
}

func defaultOptions() options {
	return options{
		enableRefresh:        true,
		maxRetries:           DefaultMaxRetries,
		refreshEndpoint:      DefaultRefreshEndpoint,
		onSessionExpired:     logSessionExpired,
		throwOnSessionExpiry: true,
		loginURL:             DefaultLoginURL,
	}
}

func (o options) with(opts ...Option) options {
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}

func logSessionExpired(ctx context.Context, code model.ErrorCode, redirectURL string) {
	logger.Context(ctx).Warnf("httpclient: session expired (%s), redirecting to %s", code, redirectURL)
}

// Option wraps an apply method to bind optional arguments to a Fetcher or to a single call
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (o optionFunc) apply(opts *options) {
	o(opts)
}

func WithRefresh(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.enableRefresh = enabled
	})
}

// WithMaxRetries bounds the refresh attempts of one logical call. Negative values count as 0.
func WithMaxRetries(maxRetries int) Option {
	return optionFunc(func(o *options) {
		o.maxRetries = max(maxRetries, 0)
	})
}

func WithRefreshEndpoint(endpoint string) Option {
	return optionFunc(func(o *options) {
		if endpoint != "" {
			o.refreshEndpoint = endpoint
		}
	})
}

// WithOnSessionExpired replaces the default hook, which logs the login redirect.
func WithOnSessionExpired(hook func(ctx context.Context, code model.ErrorCode, redirectURL string)) Option {
	return optionFunc(func(o *options) {
		if hook != nil {
			o.onSessionExpired = hook
		}
	})
}

func WithOnRefreshError(hook func(ctx context.Context, err *RefreshTokenError)) Option {
	return optionFunc(func(o *options) {
		o.onRefreshError = hook
	})
}

func WithCorrelationID(correlationID string) Option {
	return optionFunc(func(o *options) {
		o.correlationID = correlationID
	})
}

func WithThrowOnSessionExpiry(throw bool) Option {
	return optionFunc(func(o *options) {
		o.throwOnSessionExpiry = throw
	})
}

func WithLoginURL(loginURL string) Option {
	return optionFunc(func(o *options) {
		if loginURL != "" {
			o.loginURL = loginURL
		}
	})
}
