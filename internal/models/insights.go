package models

type Insight struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

type InsightsResponse struct {
	Insights []Insight `json:"insights"`
}

type LandUse struct {
	LandType   string  `json:"land_type"`
	Suggestion string  `json:"suggestion"`
	AvgAreaHa  float64 `json:"avg_area_ha"`
	Claims     int     `json:"claims"`
}

type LandUseResponse struct {
	LandUse []LandUse `json:"land_use"`
}

type DashboardSummary struct {
	TotalClaims int            `json:"total_claims"`
	Approved    int            `json:"approved"`
	Pending     int            `json:"pending"`
	Rejected    int            `json:"rejected"`
	ByState     map[string]int `json:"by_state,omitempty"`
}

type DashboardAggregates struct {
	Total       int            `json:"total,omitempty"`
	ByStatus    map[string]int `json:"by_status,omitempty"`
	ByState     map[string]int `json:"by_state"`
	ByMonth     map[string]int `json:"by_month"`
	AreaBuckets map[string]int `json:"area_buckets"`
}

// AreaBucketOrder is the display order of DashboardAggregates.AreaBuckets.
var AreaBucketOrder = []string{"0-2", "2-5", "5-10", "10+"}
