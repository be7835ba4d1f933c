package domain

// CampaignDraft — параметры кампании, извлечённые из письма.
type CampaignDraft struct {
	Cohorts        []string
	Presets        []string
	CreativeSize   string
	DeviceCategory string
	TargetGender   string
	TargetAge      string
	Duration       int
}

type Attachment struct {
	Filename      string
	FileType      string
	ExtractedText string
}
