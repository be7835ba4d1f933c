package cfg

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	CreativeSizes      map[string][][2]int        `yaml:"creative_sizes"`
	DeviceCategories   map[string][]catalogDevice `yaml:"device_categories"`
	Presets            []catalogPreset            `yaml:"presets"`
	AudiencePrefixes   []string                   `yaml:"audience_prefixes"`
	ReservedNamePrefix string                     `yaml:"reserved_name_prefix"`
	TargetAges         []string                   `yaml:"target_ages"`
	TargetGenders      []string                   `yaml:"target_genders"`
}

type catalogDevice struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

type catalogPreset struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

// LoadCatalog читает справочник медиаплана из файла или, если путь пуст, из встроенного catalog.yaml.
func LoadCatalog(path string) (*domain.MediaPlanCatalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		data = raw
	}

	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*domain.MediaPlanCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if len(file.CreativeSizes) == 0 || len(file.DeviceCategories) == 0 || len(file.Presets) == 0 {
		return nil, fmt.Errorf("catalog must define creative_sizes, device_categories and presets")
	}

	catalog := &domain.MediaPlanCatalog{
		CreativeSizes:      make(map[string][]domain.CreativeSize, len(file.CreativeSizes)),
		DeviceCategories:   make(map[string][]domain.Device, len(file.DeviceCategories)),
		Presets:            make([]domain.PresetOption, 0, len(file.Presets)),
		AudiencePrefixes:   file.AudiencePrefixes,
		ReservedNamePrefix: file.ReservedNamePrefix,
		TargetAges:         file.TargetAges,
		TargetGenders:      file.TargetGenders,
	}

	for name, sizes := range file.CreativeSizes {
		converted := make([]domain.CreativeSize, 0, len(sizes))
		for _, s := range sizes {
			converted = append(converted, domain.CreativeSize(s))
		}
		catalog.CreativeSizes[name] = converted
	}

	for name, devices := range file.DeviceCategories {
		converted := make([]domain.Device, 0, len(devices))
		for _, d := range devices {
			converted = append(converted, domain.Device{Name: d.Name, ID: d.ID})
		}
		catalog.DeviceCategories[name] = converted
	}

	seen := make(map[string]struct{}, len(file.Presets))
	for _, p := range file.Presets {
		if p.Code == "" || p.Label == "" {
			return nil, fmt.Errorf("preset entries require code and label")
		}
		if _, ok := seen[p.Code]; ok {
			return nil, fmt.Errorf("duplicate preset %q", p.Code)
		}
		seen[p.Code] = struct{}{}
		catalog.Presets = append(catalog.Presets, domain.PresetOption{Code: p.Code, Label: p.Label})
	}

	return catalog, nil
}
