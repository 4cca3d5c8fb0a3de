package roster

import (
	"errors"
	"fmt"
	"francoggm/merchant-status-relay/internal/models"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var ErrUnknownRegion = errors.New("unknown region")

// Roster maps region keys to their merchants. It is built once at start-up
// and never modified afterwards.
type Roster struct {
	regions map[string]models.Region
	order   []string
}

type rosterFile struct {
	Regions []regionFile `yaml:"regions"`
}

type regionFile struct {
	Key             string         `yaml:"key"`
	Label           string         `yaml:"label"`
	Topology        string         `yaml:"topology"`
	ParentAccountID string         `yaml:"parent_account_id"`
	Merchants       []merchantFile `yaml:"merchants"`
}

type merchantFile struct {
	Name      string `yaml:"name"`
	AccountID string `yaml:"account_id"`
}

func New(regions ...models.Region) (*Roster, error) {
	if len(regions) == 0 {
		return nil, errors.New("roster has no regions")
	}

	r := &Roster{
		regions: make(map[string]models.Region, len(regions)),
	}

	for _, region := range regions {
		if err := validateRegion(region); err != nil {
			return nil, err
		}
		if _, exists := r.regions[region.Key]; exists {
			return nil, fmt.Errorf("region %q defined twice", region.Key)
		}

		region.Merchants = slices.Clone(region.Merchants)
		for i := range region.Merchants {
			region.Merchants[i].ParentAccountID = region.ParentAccountID
		}

		r.regions[region.Key] = region
		r.order = append(r.order, region.Key)
	}

	return r, nil
}

// Default is the roster the service ships with.
func Default() *Roster {
	r, err := New(
		models.Region{
			Key:      "global",
			Label:    "ECCO GLOBAL",
			Topology: models.TopologyDirect,
			Merchants: []models.MerchantDescriptor{
				{DisplayName: "ECCO US", AccountID: "6000402"},
				{DisplayName: "ECCO CA", AccountID: "126580264"},
				{DisplayName: "ECCO AU", AccountID: "124463984"},
			},
		},
		models.Region{
			Key:             "europe",
			Label:           "ECCO EUROPE",
			Topology:        models.TopologyMCA,
			ParentAccountID: "117117533",
			Merchants: []models.MerchantDescriptor{
				{DisplayName: "ECCO GB", AccountID: "115079344"},
				{DisplayName: "ECCO FR", AccountID: "115975194"},
				{DisplayName: "ECCO DE", AccountID: "117076029"},
			},
		},
	)
	if err != nil {
		panic(err)
	}

	return r
}

// Load reads a roster from a YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	regions := make([]models.Region, 0, len(file.Regions))
	for _, rf := range file.Regions {
		region := models.Region{
			Key:             rf.Key,
			Label:           rf.Label,
			Topology:        models.Topology(rf.Topology),
			ParentAccountID: rf.ParentAccountID,
		}
		for _, mf := range rf.Merchants {
			region.Merchants = append(region.Merchants, models.MerchantDescriptor{
				DisplayName: mf.Name,
				AccountID:   mf.AccountID,
			})
		}
		regions = append(regions, region)
	}

	return New(regions...)
}

// Resolve returns a copy of the region, so callers cannot alter the roster.
func (r *Roster) Resolve(key string) (models.Region, error) {
	region, ok := r.regions[key]
	if !ok {
		return models.Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, key)
	}

	region.Merchants = slices.Clone(region.Merchants)
	return region, nil
}

func (r *Roster) Keys() []string {
	return slices.Clone(r.order)
}

// Regions lists every region in declaration order.
func (r *Roster) Regions() []models.Region {
	regions := make([]models.Region, 0, len(r.order))
	for _, key := range r.order {
		region, _ := r.Resolve(key)
		regions = append(regions, region)
	}

	return regions
}

func validateRegion(region models.Region) error {
	if region.Key == "" {
		return errors.New("region key is empty")
	}
	if region.Label == "" {
		return fmt.Errorf("region %q has no label", region.Key)
	}
	if len(region.Merchants) == 0 {
		return fmt.Errorf("region %q has no merchants", region.Key)
	}

	switch region.Topology {
	case models.TopologyDirect:
		if region.ParentAccountID != "" {
			return fmt.Errorf("direct region %q must not set a parent account", region.Key)
		}
	case models.TopologyMCA:
		if region.ParentAccountID == "" {
			return fmt.Errorf("mca region %q needs a parent account", region.Key)
		}
	default:
		return fmt.Errorf("region %q has unknown topology %q", region.Key, region.Topology)
	}

	names := make(map[string]struct{}, len(region.Merchants))
	for _, m := range region.Merchants {
		if m.DisplayName == "" || m.AccountID == "" {
			return fmt.Errorf("region %q has a merchant without name or account id", region.Key)
		}
		if _, dup := names[m.DisplayName]; dup {
			return fmt.Errorf("region %q lists %q twice", region.Key, m.DisplayName)
		}
		names[m.DisplayName] = struct{}{}
	}

	return nil
}
