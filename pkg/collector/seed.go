// pkg/collector/seed.go

package collector

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Seeder writes the configured servers into an empty store.
type Seeder interface {
	SeedServers(ctx context.Context, servers []domain.Server) (int, error)
}

// SeedServers copies cfg.Servers into the store on first start. Once the
// store holds any server it is the only source of truth.
func SeedServers(ctx context.Context, s Seeder, cfg *config.Config) error {
	n, err := s.SeedServers(ctx, cfg.DomainServers())
	if err != nil {
		return err
	}
	if n > 0 {
		otelzap.Ctx(ctx).Info("Seeded servers from configuration", zap.Int("servers", n))
	}
	return nil
}
