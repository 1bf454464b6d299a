package pipeline

import (
	"errors"
	"net/http"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/openai"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/twelvelabs"
)

// Sentinel errors fatal at tenant scope.
var (
	// ErrNoChannels is returned when a tenant has zero resolvable channels.
	ErrNoChannels = errors.New("no channels found")
	// ErrNoPosts is returned when ranking yields zero rows across all channels.
	ErrNoPosts = errors.New("no posts found")
	// ErrEmptyContext is returned when the tenant profile context cell is blank.
	ErrEmptyContext = errors.New("tenant context is empty")
)

// Kind is the closed classification of provider failures. The
// orchestrator dispatches on it exactly once, at the tenant boundary.
type Kind int

const (
	KindGeneric Kind = iota
	KindPermissionDenied
	KindRateLimited
	KindAuthFailed
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission-denied"
	case KindRateLimited:
		return "rate-limited"
	case KindAuthFailed:
		return "auth-failure"
	default:
		return "generic"
	}
}

// Classify maps an error chain to its failure kind by inspecting the
// provider status code carried in typed API errors.
func Classify(err error) Kind {
	status := 0

	var openaiErr *openai.APIError
	var videoErr *twelvelabs.APIError
	var sheetsErr *sheets.APIError
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &videoErr):
		status = videoErr.StatusCode
	case errors.As(err, &sheetsErr):
		status = sheetsErr.StatusCode
	}

	switch status {
	case http.StatusUnauthorized:
		return KindAuthFailed
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindGeneric
	}
}

// Fatal reports whether a provider failure must abort the whole tenant
// run instead of being isolated at channel/row scope.
func Fatal(err error) bool {
	return Classify(err) != KindGeneric
}
