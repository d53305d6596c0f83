package llm

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"

	"podflow/internal/services"
)

const defaultRateLimitWait = 5 * time.Second

var retryHintPattern = regexp.MustCompile(`try again in ([0-9]+\.?[0-9]*)s`)

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"quota",
	"too many requests",
	"try again in",
	"resource_exhausted",
}

// classify wraps a provider failure with ErrTransient when it looks like rate
// limiting and ErrProviderFatal otherwise. Context deadlines map to ErrTimeout.
func classify(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "llm", provider, "request timed out for model "+model, err)
	}
	if IsRateLimited(err) {
		return services.Wrap(services.ErrTransient, "llm", provider, "rate limited on model "+model, err)
	}
	return services.Wrap(services.ErrProviderFatal, "llm", provider, "generation failed on model "+model, err)
}

// IsRateLimited reports whether err carries a rate-limit signal: an HTTP 429
// status or one of the provider's rate-limit phrases.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if statusCode(err) == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SuggestedWait extracts the "try again in Xs" hint from err. It falls back to
// a Retry-After header and then to five seconds.
func SuggestedWait(err error) time.Duration {
	if err == nil {
		return defaultRateLimitWait
	}
	if m := retryHintPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		if seconds, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter
	}
	return defaultRateLimitWait
}

func statusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}
