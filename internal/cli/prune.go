package cli

import (
	"context"
	"fmt"

	"github.com/kilnhq/kilnd/internal/cache"
)

// Represents the 'kilnd prune' command.
type PruneCmd struct {
	CacheDir string `help:"Dependency layer cache directory." placeholder:"DIR"`
}

// Executes the prune command, removing all cached dependency layers.
func (c *PruneCmd) Run(ctx context.Context) error {
	layers, err := cache.Open(c.CacheDir)
	if err != nil {
		return err
	}

	if err := layers.Prune(); err != nil {
		return err
	}

	fmt.Println("layer cache pruned")
	return nil
}
