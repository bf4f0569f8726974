package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
)

func footprint(v int) *int { return &v }

var seedItems = []catalog.Item{
	{Name: "Honeycrisp Apples", Category: catalog.CategoryFruits, Price: decimal.RequireFromString("5.00"), Label: catalog.LabelLocallySourced, Stock: 120, FarmLocation: "Okanagan Valley", CarbonFootprint: footprint(1), Description: "Crisp, sweet apples picked this week."},
	{Name: "Wild Blueberries", Category: catalog.CategoryFruits, Price: decimal.RequireFromString("3.50"), Label: catalog.LabelOrganic, Stock: 80, FarmLocation: "Fraser Valley", CarbonFootprint: footprint(2), Description: "Small, intensely flavoured berries."},
	{Name: "Lacinato Kale", Category: catalog.CategoryVegetables, Price: decimal.RequireFromString("2.75"), Label: catalog.LabelFarmFresh, Stock: 60, FarmLocation: "Delta", Description: "Tender dark leaves for salads and soups."},
	{Name: "Genovese Basil", Category: catalog.CategoryHerbs, Price: decimal.RequireFromString("1.99"), Label: catalog.LabelVegan, Stock: 40, Description: "Fragrant basil bunches."},
	{Name: "Sunflower Shoots", Category: catalog.CategoryMicrogreens, Price: decimal.RequireFromString("4.25"), Label: catalog.LabelZeroWaste, Stock: 25, Description: "Nutty microgreens grown in compost."},
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load a demo catalog and a running promotion",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "discount", Value: 20, Usage: "discount rate of the demo promotion, in percent"},
			&cli.DurationFlag{Name: "duration", Value: 14 * 24 * time.Hour, Usage: "how long the demo promotion runs"},
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

			var fruitIDs []int64
			for _, it := range seedItems {
				if err := a.catalog.Create(c.Context, &it); err != nil {
					return err
				}
				if it.Category == catalog.CategoryFruits {
					fruitIDs = append(fruitIDs, it.ID)
				}
				logger.WithFields(logrus.Fields{"id": it.ID, "slug": it.Slug}).Info("seeded item")
			}

			now := time.Now().UTC()
			promo := pricing.Promotion{
				Title:              "Orchard Week",
				Description:        fmt.Sprintf("%.0f%% off orchard fruit", c.Float64("discount")),
				StartTime:          now,
				EndTime:            now.Add(c.Duration("duration")),
				DiscountRate:       decimal.NewFromFloat(c.Float64("discount")),
				EligibleProductIDs: fruitIDs,
				Active:             true,
			}
			if err := a.promotions.Create(c.Context, &promo); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{"id": promo.ID, "title": promo.Title}).Info("seeded promotion")
			return nil
		},
	}
}
