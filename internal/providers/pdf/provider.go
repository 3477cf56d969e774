package pdf

import (
	"context"
	"io"

	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
)

// Provider renders printable documents for the kitchen and the delivery crew.
type Provider interface {
	GenerateProductionSheet(ctx context.Context, sheet deliverydomain.ProductionResponse) (io.Reader, error)
}
