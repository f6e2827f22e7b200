package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// RetryConfig bounds retries of upstream calls. Network errors, 5xx and 429
// responses are retried with exponential backoff, except for requests made
// with a context from withoutRetries.
type RetryConfig struct {
	RetryMax int
	WaitMin  time.Duration
	WaitMax  time.Duration
	Timeout  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		RetryMax: 3,
		WaitMin:  250 * time.Millisecond,
		WaitMax:  2 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// NewHTTPClient returns a standard client backed by retryablehttp.
func NewHTTPClient(rc RetryConfig) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = rc.RetryMax
	client.RetryWaitMin = rc.WaitMin
	client.RetryWaitMax = rc.WaitMax
	client.Logger = zerologAdapter{}
	client.CheckRetry = checkRetry
	client.HTTPClient.Timeout = rc.Timeout

	return client.StandardClient()
}

type noRetryKey struct{}

// withoutRetries marks upstream calls that must be sent at most once, such
// as redeeming a single use authorization code.
func withoutRetries(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type zerologAdapter struct{}

var _ retryablehttp.LeveledLogger = zerologAdapter{}

func (zerologAdapter) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Debug(msg string, keysAndValues ...interface{}) {
	log.Trace().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg(msg)
}
