package query

import (
	"context"

	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
)

// Engine sends a built request to the reasoning engine. Implementations must
// be safe for concurrent use and must honour ctx cancellation. On error the
// response carries only the usage of the calls already made.
type Engine interface {
	Send(ctx context.Context, req *request.Request) (response.Response, error)
}
