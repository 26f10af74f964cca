package llm

// Harm categories accepted in safety settings.
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
	HarmCategoryCivicIntegrity   = "HARM_CATEGORY_CIVIC_INTEGRITY"
)

// Blocking thresholds accepted in safety settings.
const (
	ThresholdBlockNone           = "BLOCK_NONE"
	ThresholdBlockOnlyHigh       = "BLOCK_ONLY_HIGH"
	ThresholdBlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
	ThresholdBlockLowAndAbove    = "BLOCK_LOW_AND_ABOVE"
)

// HarmCategories lists every category carried in the default table, in a
// stable order.
var HarmCategories = []string{
	HarmCategoryHarassment,
	HarmCategoryHateSpeech,
	HarmCategorySexuallyExplicit,
	HarmCategoryDangerousContent,
	HarmCategoryCivicIntegrity,
}

// DefaultSafetyThreshold applies to every category unless overridden.
const DefaultSafetyThreshold = ThresholdBlockMediumAndAbove

// DefaultSafetySettings returns the full category table at the default
// threshold.
func DefaultSafetySettings() []SafetySetting {
	out := make([]SafetySetting, 0, len(HarmCategories))
	for _, c := range HarmCategories {
		out = append(out, SafetySetting{Category: c, Threshold: DefaultSafetyThreshold})
	}
	return out
}

// MergeSafetySettings starts from the default table and applies per-category
// overrides. Override categories not present in the defaults are appended.
func MergeSafetySettings(overrides []SafetySetting) []SafetySetting {
	merged := DefaultSafetySettings()
	if len(overrides) == 0 {
		return merged
	}

	byCategory := make(map[string]string, len(overrides))
	for _, o := range overrides {
		if o.Category == "" || o.Threshold == "" {
			continue
		}
		byCategory[o.Category] = o.Threshold
	}

	seen := make(map[string]bool, len(merged))
	for i := range merged {
		seen[merged[i].Category] = true
		if t, ok := byCategory[merged[i].Category]; ok {
			merged[i].Threshold = t
		}
	}
	for _, o := range overrides {
		if o.Category == "" || o.Threshold == "" || seen[o.Category] {
			continue
		}
		merged = append(merged, o)
		seen[o.Category] = true
	}
	return merged
}
