// Package storeutils is the knowledge store utility package
package storeutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/store/inmemory"
	"github.com/papercomputeco/mentor/pkg/store/postgres"
	"github.com/papercomputeco/mentor/pkg/store/sqlite"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
	Logger       *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (store.Driver, error) {
	switch o.ProviderType {
	case "postgres":
		driver, err := postgres.NewDriver(ctx, o.Target)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		o.Logger.Info("using postgres knowledge store")
		return driver, nil

	case "sqlite":
		driver, err := sqlite.NewDriver(ctx, o.Target)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		o.Logger.Info("using sqlite knowledge store", zap.String("path", o.Target))
		return driver, nil

	case "inmemory", "":
		o.Logger.Info("using in-memory knowledge store")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported knowledge store provider: %s", o.ProviderType)
	}
}
