package model

// Summary condenses a set of VaptResults for the header of a report.
type Summary struct {
	// Total is the number of assessed ports.
	Total int `json:"total"`

	// Counts maps each aggregate risk level to the number of ports at it.
	// Every level is present, including those with a zero count.
	Counts map[RiskLevel]int `json:"-"`

	// CriticalCount through LowCount mirror Counts for serialization.
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`

	// GeneralRecommendations is the de-duplicated union of every
	// result's recommendations in first-seen order.
	GeneralRecommendations []string `json:"general_recommendations"`
}

// Summarize counts results per risk level and collects the union of their
// recommendations.
func Summarize(results []VaptResult) *Summary {
	s := &Summary{
		Total:                  len(results),
		Counts:                 make(map[RiskLevel]int, 4),
		GeneralRecommendations: make([]string, 0),
	}
	for _, level := range AllRiskLevels() {
		s.Counts[level] = 0
	}

	seen := make(map[string]struct{})
	for _, r := range results {
		s.Counts[r.RiskLevel]++
		for _, rec := range r.Recommendations {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			s.GeneralRecommendations = append(s.GeneralRecommendations, rec)
		}
	}

	s.CriticalCount = s.Counts[RiskCritical]
	s.HighCount = s.Counts[RiskHigh]
	s.MediumCount = s.Counts[RiskMedium]
	s.LowCount = s.Counts[RiskLow]

	return s
}

// HighestRisk returns the most severe aggregate level across all results,
// or RiskLow when there are none.
func (s *Summary) HighestRisk() RiskLevel {
	for _, level := range AllRiskLevels() {
		if s.Counts[level] > 0 {
			return level
		}
	}
	return RiskLow
}

// AppendUnique appends each value of add to list unless it is already
// present, preserving first occurrence order.
func AppendUnique(list []string, add ...string) []string {
	for _, a := range add {
		found := false
		for _, existing := range list {
			if existing == a {
				found = true
				break
			}
		}
		if !found {
			list = append(list, a)
		}
	}
	return list
}
