package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Delete the existing SQLite cache before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if _, err := os.Stat(ctx.Config.Path()); os.IsNotExist(err) {
		if err := ctx.Config.Save(); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		ctx.Printf("Wrote default config to: %s\n", ctx.Config.Path())
	} else if err != nil {
		return fmt.Errorf("failed to access config: %w", err)
	}

	if c.Force && !storage.IsPostgres(ctx.Config.Cache) {
		path := ctx.Cache.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			if err := ctx.Cache.Close(); err != nil {
				return fmt.Errorf("failed to close existing cache: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing cache: %w", err)
			}
			ctx.Printf("Deleted existing cache at: %s\n", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing cache: %w", err)
		}
	}

	if err := ctx.Cache.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized surgisync cache at: %s\n", ctx.Cache.GetConfigPath())
	return nil
}
