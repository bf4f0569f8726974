package main

import (
	"github.com/urfave/cli/v2"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.DatabaseDSN, logger)
		},
	}
}
