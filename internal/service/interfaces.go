package service

import (
	"context"

	"github.com/rryowa/fra_portal/internal/client"
)

// APIClient is the part of *client.Client the façade depends on.
type APIClient interface {
	Do(ctx context.Context, req *client.Request, out any) error
}
