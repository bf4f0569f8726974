package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

func orderStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "order-status",
		Usage:     "move an order to another fulfilment status",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "slug", Usage: "order slug", Required: true},
			&cli.StringFlag{
				Name:     "status",
				Usage:    fmt.Sprintf("one of %q, %q, %q", order.StatusPending, order.StatusOutForShipping, order.StatusCompleted),
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(c.Context, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			slug, status := c.String("slug"), order.Status(c.String("status"))
			if err := a.store.SetStatus(c.Context, slug, status); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{"slug": slug, "status": status}).Info("order status updated")
			return nil
		},
	}
}
