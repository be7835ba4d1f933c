package backend

// Форматы ответов и запросов внешних сервисов каталога, локаций и прогнозов.

type catalogEntryJSON struct {
	AudienceName   string  `json:"audience_name"`
	Description    string  `json:"description"`
	Abvr           string  `json:"abvr"`
	L30dUniques    float64 `json:"l30d_uniques"`
	AudiencePrefix string  `json:"audiencePrefix"`
}

type cohortJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Abvrs string `json:"abvrs"` // коды через запятую
}

type locationSearchJSON struct {
	Name        string `json:"name"`
	LocationID  int64  `json:"locationId"`
	Type        string `json:"type"`
	CountryCode string `json:"countryCode"`
}

type locationGroupJSON struct {
	IncludedLocations []locationSearchJSON `json:"includedLocations"`
	ExcludedLocations []locationSearchJSON `json:"excludedLocations"`
}

type locationRefJSON struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

type deviceJSON struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type forecastPayload struct {
	LineItemPriorityValue int               `json:"lineItemPriorityValue"`
	CreativeSize          [][2]int          `json:"creativeSize"`
	InventoryPresets      string            `json:"inventoryPresets"`
	DeviceCategory        []deviceJSON      `json:"deviceCategory"`
	IncludedLocations     []locationRefJSON `json:"includedLocations"`
	ExcludedLocations     []locationRefJSON `json:"excludedLocations"`
	Abvr                  string            `json:"abvr"`
	StartDate             string            `json:"startDate"`
	EndDate               string            `json:"endDate"`
}

type metricsJSON struct {
	User float64 `json:"user"`
	Impr float64 `json:"impr"`
}

type combinedForecastJSON struct {
	CombinedResponse *metricsJSON `json:"CombinedResponse"`
}
