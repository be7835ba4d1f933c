package domain

// PresetOption — код пресета инвентаря и его отображаемое название.
type PresetOption struct {
	Code  string
	Label string
}

// MediaPlanCatalog — справочник значений, допустимых в медиаплане.
type MediaPlanCatalog struct {
	CreativeSizes      map[string][]CreativeSize
	DeviceCategories   map[string][]Device
	Presets            []PresetOption
	AudiencePrefixes   []string
	ReservedNamePrefix string
	TargetAges         []string
	TargetGenders      []string
}

func (c *MediaPlanCatalog) Sizes(name string) ([]CreativeSize, bool) {
	sizes, ok := c.CreativeSizes[name]
	return sizes, ok
}

func (c *MediaPlanCatalog) Devices(name string) ([]Device, bool) {
	devices, ok := c.DeviceCategories[name]
	return devices, ok
}

// PresetLabel возвращает отображаемое название пресета по коду.
func (c *MediaPlanCatalog) PresetLabel(code string) (string, bool) {
	for _, p := range c.Presets {
		if p.Code == code {
			return p.Label, true
		}
	}
	return "", false
}

func (c *MediaPlanCatalog) PresetCodes() []string {
	codes := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		codes = append(codes, p.Code)
	}
	return codes
}

// AllowsPrefix сообщает, входит ли префикс аудитории в разрешённый список.
func (c *MediaPlanCatalog) AllowsPrefix(prefix string) bool {
	for _, p := range c.AudiencePrefixes {
		if p == prefix {
			return true
		}
	}
	return false
}
