package interfaces

import (
	"context"

	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

// AlertProvider delivers a release notification to one webhook destination
type AlertProvider interface {
	Kind() types.ProviderKind

	// Enabled is false when no webhook URL is configured
	Enabled() bool

	// Send posts the release once. A non-2xx response is an error.
	Send(ctx context.Context, release *model.Release) error
}
