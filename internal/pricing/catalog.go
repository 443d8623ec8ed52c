package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"leadchat_backend/internal/intake/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// TierRate is the material used for one service/tier pair and its rate per unit.
type TierRate struct {
	Material string  `yaml:"material"`
	Rate     float64 `yaml:"rate"`
}

// ServiceRates is the catalog entry of one service.
type ServiceRates struct {
	HoursPerUnit float64                  `yaml:"hours_per_unit"`
	Tiers        map[domain.Tier]TierRate `yaml:"tiers"`
}

// Catalog is the rate catalog. It is read-only after loading.
type Catalog struct {
	Currency         string  `yaml:"currency"`
	LabourRate       float64 `yaml:"labour_rate"`
	AccessMultiplier float64 `yaml:"access_multiplier"`

	Surcharges struct {
		Permit               float64 `yaml:"permit"`
		SteepGrading         float64 `yaml:"steep_grading"`
		Scaffolding          float64 `yaml:"scaffolding"`
		ScaffoldingMinHeight float64 `yaml:"scaffolding_min_height"`
	} `yaml:"surcharges"`

	Demolition struct {
		ThicknessM    float64 `yaml:"thickness_m"`
		DensityTPerM3 float64 `yaml:"density_t_per_m3"`
		TonnesPerSkip float64 `yaml:"tonnes_per_skip"`
		CostPerSkip   float64 `yaml:"cost_per_skip"`
	} `yaml:"demolition"`

	Wrapper struct {
		ProjectManagement float64 `yaml:"project_management"`
		Contingency       float64 `yaml:"contingency"`
		Profit            float64 `yaml:"profit"`
	} `yaml:"wrapper"`

	RangeFraction     float64 `yaml:"range_fraction"`
	HighPriorityAbove int64   `yaml:"high_priority_above"`

	Services map[domain.Service]ServiceRates `yaml:"services"`
}

// LoadCatalog parses and checks a catalog document.
func LoadCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse rate catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, fmt.Errorf("rate catalog: %w", err)
	}
	return &c, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
})

// DefaultCatalog returns the embedded catalog, loaded on first use.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// Rate looks up the service/tier pair.
func (c *Catalog) Rate(svc domain.Service, tier domain.Tier) (ServiceRates, TierRate, bool) {
	rates, ok := c.Services[svc]
	if !ok {
		return ServiceRates{}, TierRate{}, false
	}
	tr, ok := rates.Tiers[tier]
	return rates, tr, ok
}

func (c *Catalog) check() error {
	var errs []error
	if c.LabourRate <= 0 {
		errs = append(errs, errors.New("labour_rate must be positive"))
	}
	if c.AccessMultiplier < 1 {
		errs = append(errs, errors.New("access_multiplier must be at least 1"))
	}
	if c.Demolition.TonnesPerSkip <= 0 {
		errs = append(errs, errors.New("demolition.tonnes_per_skip must be positive"))
	}
	if c.RangeFraction < 0 || c.RangeFraction >= 1 {
		errs = append(errs, errors.New("range_fraction must be in [0, 1)"))
	}
	for _, svc := range domain.Services {
		rates, ok := c.Services[svc]
		if !ok {
			errs = append(errs, fmt.Errorf("missing service %s", svc))
			continue
		}
		if rates.HoursPerUnit <= 0 {
			errs = append(errs, fmt.Errorf("%s: hours_per_unit must be positive", svc))
		}
		for _, tier := range []domain.Tier{domain.TierStandard, domain.TierPremium, domain.TierLuxury} {
			tr, ok := rates.Tiers[tier]
			if !ok || tr.Rate <= 0 || tr.Material == "" {
				errs = append(errs, fmt.Errorf("%s/%s: missing or non-positive rate", svc, tier))
			}
		}
	}
	return errors.Join(errs...)
}
