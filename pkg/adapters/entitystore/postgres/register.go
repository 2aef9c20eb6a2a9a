package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
)

func init() {
	entitystore.Register(entitystore.Registration{
		Info: entitystore.Info{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
		},
		Factory: func(ctx context.Context, cfg entitystore.Config, logger *zap.Logger) (entitystore.EntityStore, error) {
			return NewStore(ctx, cfg, logger)
		},
	})
}
