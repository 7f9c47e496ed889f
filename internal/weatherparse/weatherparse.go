// Package weatherparse extracts city/date/temperature-bucket info from a
// Polymarket weather question and maps a weather sidecar's bucket
// probabilities onto that bucket.
//
// Grounded on original_source/weather_client.rs: parse_weather_market,
// extract_date, extract_temperature_range, get_weather_model_probability.
package weatherparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// CityPattern maps a question substring to a station city code.
type CityPattern struct {
	Pattern string
	Code    string
}

func defaultCityPatterns() []CityPattern {
	return []CityPattern{
		{"New York", "NYC"},
		{"NYC", "NYC"},
		{"Los Angeles", "LAX"},
		{"Chicago", "CHI"},
		{"Houston", "HOU"},
		{"Phoenix", "PHX"},
		{"Philadelphia", "PHL"},
		{"San Antonio", "SAN"},
		{"San Diego", "SDG"},
		{"Dallas", "DAL"},
		{"San Jose", "SJC"},
		{"Atlanta", "ATL"},
		{"Miami", "MIA"},
		{"Boston", "BOS"},
		{"Seattle", "SEA"},
		{"Denver", "DEN"},
		{"Washington", "DCA"},
		{"Minneapolis", "MSP"},
		{"Detroit", "DTW"},
		{"Tampa", "TPA"},
		{"St. Louis", "STL"},
		{"St Louis", "STL"},
	}
}

// cityPatterns is package-level so ParseQuestion stays a simple function
// for callers (estimator, position manager) that don't need a custom
// table. SetCityPatterns lets config override it at startup from the
// embedded citymap.yaml asset; since the asset is embedded, edits to it
// take effect only after a rebuild.
var cityPatterns = defaultCityPatterns()

// SetCityPatterns replaces the city-code lookup table used by
// ParseQuestion. Not safe to call concurrently with ParseQuestion; call
// once at startup before the cycle loop begins.
func SetCityPatterns(patterns []CityPattern) {
	cityPatterns = patterns
}

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

var (
	isoDateRe   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	monthDateRe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})`)

	betweenRe = regexp.MustCompile(`between\s+(\d+)°?F?\s+and\s+(\d+)°?F`)
	rangeRe   = regexp.MustCompile(`(\d+)\s*[-\x{2013}]\s*(\d+)°F`)
	aboveRe   = regexp.MustCompile(`(\d+)°F\s+or\s+(?:above|higher|more)`)
	belowRe   = regexp.MustCompile(`(?:below|under)\s+(\d+)°F`)
)

// ParseQuestion extracts city, date, and temperature bucket from a
// Polymarket weather question. Returns false if the question does not
// describe a weather market this parser understands.
func ParseQuestion(question string) (domain.WeatherMarketInfo, bool) {
	if !strings.Contains(strings.ToLower(question), "temperature") {
		return domain.WeatherMarketInfo{}, false
	}

	city, ok := findCity(question)
	if !ok {
		return domain.WeatherMarketInfo{}, false
	}

	date, ok := extractDate(question)
	if !ok {
		return domain.WeatherMarketInfo{}, false
	}

	lower, upper, ok := extractTemperatureRange(question)
	if !ok {
		return domain.WeatherMarketInfo{}, false
	}

	return domain.WeatherMarketInfo{
		City:        city,
		Date:        date,
		BucketLabel: strconv.Itoa(int(lower)) + "-" + strconv.Itoa(int(upper)),
		BucketLower: lower,
		BucketUpper: upper,
	}, true
}

func findCity(question string) (string, bool) {
	for _, cp := range cityPatterns {
		if strings.Contains(question, cp.Pattern) {
			return cp.Code, true
		}
	}
	return "", false
}

func extractDate(question string) (string, bool) {
	if m := isoDateRe.FindString(question); m != "" {
		return m, true
	}

	m := monthDateRe.FindStringSubmatch(question)
	if m == nil {
		return "", false
	}
	month, ok := monthNumbers[strings.ToLower(m[1])]
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return "", false
	}
	return pad4(year) + "-" + pad2(month) + "-" + pad2(day), true
}

func extractTemperatureRange(question string) (float64, float64, bool) {
	if m := betweenRe.FindStringSubmatch(question); m != nil {
		lower, _ := strconv.ParseFloat(m[1], 64)
		upper, _ := strconv.ParseFloat(m[2], 64)
		return lower, upper, true
	}
	if m := rangeRe.FindStringSubmatch(question); m != nil {
		lower, _ := strconv.ParseFloat(m[1], 64)
		upper, _ := strconv.ParseFloat(m[2], 64)
		return lower, upper, true
	}
	if m := aboveRe.FindStringSubmatch(question); m != nil {
		lower, _ := strconv.ParseFloat(m[1], 64)
		return lower, 130.0, true
	}
	if m := belowRe.FindStringSubmatch(question); m != nil {
		upper, _ := strconv.ParseFloat(m[1], 64)
		return 0.0, upper, true
	}
	return 0, 0, false
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func pad4(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

// ModelProbability sums the bucket probabilities from probs that fall
// within info's bucket, handling "or above" and "below" open-ended
// buckets, exact-range matches, and partial-overlap fallback weighted by
// bucket-width overlap fraction.
func ModelProbability(info domain.WeatherMarketInfo, probs domain.WeatherProbabilities) (float64, bool) {
	if info.BucketUpper >= 130.0 {
		var total float64
		for _, b := range probs.Buckets {
			if b.Lower >= info.BucketLower {
				total += b.Probability
			}
		}
		return total, true
	}

	if info.BucketLower <= 0.0 {
		var total float64
		for _, b := range probs.Buckets {
			if b.Upper <= info.BucketUpper {
				total += b.Probability
			}
		}
		return total, true
	}

	var exact float64
	for _, b := range probs.Buckets {
		if b.Lower >= info.BucketLower && b.Upper <= info.BucketUpper {
			exact += b.Probability
		}
	}
	if exact > 0.0 {
		return exact, true
	}

	var overlap float64
	for _, b := range probs.Buckets {
		if b.Lower < info.BucketUpper && b.Upper > info.BucketLower {
			overlapLower := max(b.Lower, info.BucketLower)
			overlapUpper := min(b.Upper, info.BucketUpper)
			frac := (overlapUpper - overlapLower) / (b.Upper - b.Lower)
			overlap += b.Probability * frac
		}
	}
	return overlap, true
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
