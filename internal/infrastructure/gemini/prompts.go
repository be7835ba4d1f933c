package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediaplan/forecast-service/internal/usecase"
)

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func campaignPrompt(req *usecase.ExtractCampaignReq) string {
	return fmt.Sprintf(`You are an intelligent assistant designed to classify email requests into relevant ad cohorts, presets and creative formats.

Email Details
- Subject: %s
- Body: %s

Available Cohorts
%s

Available Creative Sizes
%s

Available Device Categories
%s

Available Presets
%s

Available Target Ages
%s

Available Target Genders
%s

Return your response strictly as a valid JSON object in the following structure:
{
  "cohort": ["cohort_name1", "cohort_name2"],
  "preset": ["preset_name1", "preset_name2"],
  "creative_size": "creative_name",
  "device_category": "Mobile",
  "target_gender": "Male",
  "target_age": ["18-24", "25-34"],
  "duration": 30
}

Only choose values from the lists above.
Choose TIL_All_Cluster_RNF as default preset if nothing is related to preset in the request.
Choose Banners as the default creative size if nothing is related to creative size in the request.
If device category is not specified, take it as "All".
If target gender or target age are not specified, take them as "All".
If duration is not specified, take it as 30 days, else take the specified duration in days.`,
		req.Subject,
		req.Body,
		jsonList(req.Cohorts),
		jsonList(req.CreativeSizes),
		jsonList(req.DeviceCategories),
		jsonList(req.Presets),
		jsonList(req.TargetAges),
		jsonList(req.TargetGenders),
	)
}

func locationsPrompt(req *usecase.ExtractLocationsReq) string {
	return fmt.Sprintf(`You are an intelligent assistant designed to extract geographic targeting from media plan email requests.

Email Details
- Subject: %s
- Body: %s

Return your response strictly as a valid JSON object in the following structure:
{
  "locations": [
    {"includedLocations": ["location1", "location2"], "excludedLocations": ["location3"], "nameAsId": "location_name1"},
    {"includedLocations": ["location4"], "excludedLocations": [], "nameAsId": ""}
  ]
}

If shorthand notations like 2 letter state codes are used, expand them to full state names.
Do not group multiple locations into one includedLocations list unless they are explicitly mentioned as a single phrase (e.g. "Delhi NCR", "Tier 1 Cities").
Treat each region or state as a separate location object.
If exclusions are mentioned, apply them only to the relevant included region.
nameAsId is required when excludedLocations is non-empty or includedLocations has more than one region, otherwise leave it blank.
Ensure nameAsId is unique across location objects when present.
If no location is mentioned, return an empty locations list.`,
		req.Subject,
		req.Body,
	)
}

func keywordsPrompt(subject, body string) string {
	return fmt.Sprintf(`You are an expert media planning assistant specializing in audience targeting. Extract 6-8 highly specific, domain-relevant targeting keywords from the email that would help identify the most suitable audience segments.

Email Content:
Subject: %s
Body: %s

Instructions:
1. Focus on the specific product or service category mentioned in the email.
2. Extract keywords that directly relate to the target audience's interests and behaviors.
3. Prefer domain-specific terms over generic ones and avoid broad categories that could match unrelated audiences.
4. Consider the exact product (e.g. "diamond jewelry" not just "jewelry").
5. Never include city names or locations in the keywords.

Return only a JSON object:
{"relevant_entries": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5", "keyword6"]}`,
		subject,
		body,
	)
}

func selectAudiencesPrompt(keywords, names []string) string {
	var list strings.Builder
	for _, name := range names {
		list.WriteString("- " + name + "\n")
	}

	return fmt.Sprintf(`You are an intelligent assistant designed to select the most relevant audience names from a list, based on a user's intent.

User Intent
%q

Available Audiences
%s
From the above list, select the most relevant audience names that best match the user's intent. Choose as many as possible given they are relevant to the user's intent.
Rank them by relevance, with the most relevant audience first.
Only choose from the audience names listed above and do not invent new audience names.

Return only a JSON object:
{"audiences": ["audience1", "audience2"]}`,
		strings.Join(keywords, ", "),
		list.String(),
	)
}
