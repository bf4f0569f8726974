package catalog

import (
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFruits      Category = "fruits"
	CategoryVegetables  Category = "vegetables"
	CategoryHerbs       Category = "herbs"
	CategoryMicrogreens Category = "microgreens"
	CategorySeasonal    Category = "seasonal"
	CategoryOrganic     Category = "organic"
)

var categoryNames = map[Category]string{
	CategoryFruits:      "Fruits",
	CategoryVegetables:  "Vegetables",
	CategoryHerbs:       "Herbs & Greens",
	CategoryMicrogreens: "Microgreens",
	CategorySeasonal:    "Seasonal Produce",
	CategoryOrganic:     "Organic Produce",
}

type Label string

const (
	LabelNone              Label = ""
	LabelOrganic           Label = "organic"
	LabelVegan             Label = "vegan"
	LabelLocallySourced    Label = "locally_sourced"
	LabelFreshlyHarvested  Label = "freshly_harvested"
	LabelSeasonal          Label = "seasonal"
	LabelFarmFresh         Label = "farm_fresh"
	LabelSustainablyFarmed Label = "sustainably_farmed"
	LabelZeroWaste         Label = "zero_waste"
)

var labelNames = map[Label]string{
	LabelOrganic:           "Organic",
	LabelVegan:             "Vegan",
	LabelLocallySourced:    "Locally Sourced",
	LabelFreshlyHarvested:  "Freshly Harvested",
	LabelSeasonal:          "Seasonal Produce",
	LabelFarmFresh:         "Farm Fresh",
	LabelSustainablyFarmed: "Sustainably Farmed",
	LabelZeroWaste:         "Zero-Waste Packaging",
}

// DisplayName falls back to the raw key for unknown categories.
func (c Category) DisplayName() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return string(c)
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (l Label) DisplayName() string {
	if n, ok := labelNames[l]; ok {
		return n
	}
	return string(l)
}

func (l Label) Valid() bool {
	if l == LabelNone {
		return true
	}
	_, ok := labelNames[l]
	return ok
}

const DefaultImageURL = "https://developers.elementor.com/path/to/placeholder.png"

type Item struct {
	ID              int64
	Name            string
	Category        Category
	Price           decimal.Decimal
	Label           Label
	ImageURL        string
	Description     string
	Stock           int
	Slug            string
	FarmLocation    string
	CarbonFootprint *int
}

type Choice struct {
	Key  string
	Name string
}

// Facets lists the categories and labels present in the catalog.
type Facets struct {
	Categories []Choice
	Labels     []Choice
}
