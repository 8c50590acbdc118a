package fakeapi

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rryowa/fra_portal/internal/models"
)

var (
	states    = []string{"MH", "MP", "OD", "TR"}
	statuses  = []string{"pending", "approved", "rejected"}
	landTypes = []string{"degraded_forest", "community_forest", "agroforestry", "protected_zone"}
	claimants = []string{"Asha", "Ravi", "Sita", "Aman", "Pooja", "Rahul", "Meera", "Dev"}

	stateCentres = map[string]orb.Point{
		"MH": {75.7, 19.7},
		"MP": {78.6, 23.5},
		"OD": {84.6, 20.9},
		"TR": {91.9, 23.9},
	}

	landUseSuggestions = map[string]string{
		"degraded_forest":  "Afforestation and community forestry with native species",
		"community_forest": "Sustainable community-managed forestry and NTFP livelihood support",
		"agroforestry":     "Agroforestry with mixed cropping and soil conservation",
		"protected_zone":   "Conservation-first usage with minimal disturbance",
	}
)

// generateClaims builds a deterministic claim set.
func generateClaims(n int, today time.Time) []models.Claim {
	claims := make([]models.Claim, n)
	for i := 0; i < n; i++ {
		claims[i] = models.Claim{
			ClaimID:                  fmt.Sprintf("CLM-%d", 2000+i),
			Claimant:                 claimants[i%len(claimants)],
			State:                    states[i%len(states)],
			Status:                   statuses[(i/2)%len(statuses)],
			AreaHa:                   math.Round((0.2+float64((i*37)%118)/10)*100) / 100,
			Created:                  today.AddDate(0, 0, -(i*13)%365).Format(time.DateOnly),
			DocsComplete:             i%4 != 0,
			IsDuplicate:              i%10 == 7,
			IsInCriticalWildlifeZone: i%8 == 5,
			CommunitySupport:         i%2 == 0,
			LandType:                 landTypes[(i/3)%len(landTypes)],
		}
	}
	return claims
}

func claimsCollection(claims []models.Claim) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, c := range claims {
		centre := stateCentres[c.State]
		offset := float64(i%7) * 0.1
		f := geojson.NewFeature(orb.Point{centre.Lon() + offset, centre.Lat() - offset})
		f.Properties["claim_id"] = c.ClaimID
		f.Properties["claimant"] = c.Claimant
		f.Properties["state"] = c.State
		f.Properties["status"] = c.Status
		fc.Append(f)
	}
	return fc
}

func outlineCollection(name string, centre orb.Point) *geojson.FeatureCollection {
	ring := orb.Ring{
		{centre.Lon() - 1, centre.Lat() - 1},
		{centre.Lon() + 1, centre.Lat() - 1},
		{centre.Lon() + 1, centre.Lat() + 1},
		{centre.Lon() - 1, centre.Lat() + 1},
		{centre.Lon() - 1, centre.Lat() - 1},
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["name"] = name
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}

// scoreRules is the backend's rule-based scorer.
func scoreRules(c models.Claim) models.ScoreResult {
	base := 50.0
	var explanation []string
	if c.DocsComplete {
		base += 15
		explanation = append(explanation, "+15 complete documents")
	} else {
		base -= 10
		explanation = append(explanation, "-10 missing documents")
	}
	if c.IsDuplicate {
		base -= 25
		explanation = append(explanation, "-25 potential duplicate")
	}
	if c.AreaHa <= 2 {
		base += 10
		explanation = append(explanation, "+10 small area <=2ha")
	} else if c.AreaHa >= 10 {
		base -= 5
		explanation = append(explanation, "-5 large area >=10ha")
	}
	if c.IsInCriticalWildlifeZone {
		base -= 15
		explanation = append(explanation, "-15 critical wildlife zone")
	}
	if c.CommunitySupport {
		base += 10
		explanation = append(explanation, "+10 community support")
	}
	switch c.Status {
	case models.StatusApproved:
		base -= 40
		explanation = append(explanation, "-40 already approved")
	case models.StatusRejected:
		base -= 30
		explanation = append(explanation, "-30 already rejected")
	}

	score := int(math.Max(0, math.Min(100, math.Round(base))))
	return models.ScoreResult{Score: score, Priority: priority(score), Explanation: strings.Join(explanation, "; ")}
}

// scoreML stands in for the backend's classifier with a fixed logistic model.
func scoreML(c models.Claim) models.ScoreResult {
	z := -2.0
	if c.DocsComplete {
		z += 1.8
	}
	if c.IsDuplicate {
		z -= 2.5
	}
	if c.CommunitySupport {
		z += 1.6
	}
	z -= 0.25 * (c.AreaHa - 3)
	if c.IsInCriticalWildlifeZone {
		z -= 0.3
	}
	prob := 1 / (1 + math.Exp(-z))
	score := int(math.Round(prob * 100))
	return models.ScoreResult{Score: score, Priority: priority(score), Prob: &prob}
}

func priority(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

func aggregates(claims []models.Claim) models.DashboardAggregates {
	agg := models.DashboardAggregates{
		Total:       len(claims),
		ByStatus:    map[string]int{},
		ByState:     map[string]int{},
		ByMonth:     map[string]int{},
		AreaBuckets: map[string]int{"0-2": 0, "2-5": 0, "5-10": 0, "10+": 0},
	}
	for _, c := range claims {
		agg.ByStatus[c.Status]++
		agg.ByState[c.State]++
		if len(c.Created) >= 7 {
			agg.ByMonth[c.Created[:7]]++
		}
		switch {
		case c.AreaHa <= 2:
			agg.AreaBuckets["0-2"]++
		case c.AreaHa <= 5:
			agg.AreaBuckets["2-5"]++
		case c.AreaHa <= 10:
			agg.AreaBuckets["5-10"]++
		default:
			agg.AreaBuckets["10+"]++
		}
	}
	return agg
}

func landUse(claims []models.Claim) []models.LandUse {
	byType := map[string][]models.Claim{}
	for _, c := range claims {
		byType[c.LandType] = append(byType[c.LandType], c)
	}

	out := make([]models.LandUse, 0, len(byType))
	for _, lt := range landTypes {
		subset := byType[lt]
		if len(subset) == 0 {
			continue
		}
		var total float64
		for _, c := range subset {
			total += c.AreaHa
		}
		out = append(out, models.LandUse{
			LandType:   lt,
			Suggestion: landUseSuggestions[lt],
			AvgAreaHa:  math.Round(total/float64(len(subset))*100) / 100,
			Claims:     len(subset),
		})
	}
	return out
}

func summary(claims []models.Claim) models.DashboardSummary {
	s := models.DashboardSummary{TotalClaims: len(claims), ByState: map[string]int{}}
	for _, c := range claims {
		switch c.Status {
		case models.StatusApproved:
			s.Approved++
		case models.StatusPending:
			s.Pending++
		case models.StatusRejected:
			s.Rejected++
		}
		s.ByState[c.State]++
	}
	return s
}
