package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/vector"
	"github.com/papercomputeco/mentor/pkg/vector/chroma"
	"github.com/papercomputeco/mentor/pkg/vector/qdrant"
	"github.com/papercomputeco/mentor/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	APIKey       string
	Logger       *zap.Logger
}

func NewDriver(o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Target:         o.Target,
			CollectionName: o.Collection,
			APIKey:         o.APIKey,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: o.Target,
		}, o.Logger)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
