// Package insight turns loosely-typed generated industry analyses into
// IndustryInsight rows and materializes exactly one row per industry.
//
// Parsing happens in two stages: ParseRaw decodes model text permissively
// into a generic map, then Normalize applies fixed per-field coercion rules.
// Normalize never fails; malformed fields fall back to their defaults.
package insight

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"jobmate/coach-service/internal/model"
)

// DefaultDemandLevel is used for a missing or unrecognized demand level.
const DefaultDemandLevel = model.DemandMedium

// DefaultMarketOutlook is used for a missing or unrecognized outlook.
const DefaultMarketOutlook = model.OutlookNeutral

// Field names of the generated payload, in their canonical spelling.
const (
	fieldSalaryRanges      = "salaryRanges"
	fieldGrowthRate        = "growthRate"
	fieldDemandLevel       = "demandLevel"
	fieldMarketOutlook     = "marketOutlook"
	fieldTopSkills         = "topSkills"
	fieldKeyTrends         = "keyTrends"
	fieldRecommendedSkills = "recommendedSkills"
)

var canonicalFields = []string{
	fieldSalaryRanges, fieldGrowthRate, fieldDemandLevel, fieldMarketOutlook,
	fieldTopSkills, fieldKeyTrends, fieldRecommendedSkills,
}

// Normalized is an insight's content without its key and timestamps.
// Every slice is non-nil and both enums hold a defined value.
type Normalized struct {
	SalaryRanges      []model.SalaryRange `json:"salaryRanges"`
	GrowthRate        float64             `json:"growthRate"`
	DemandLevel       model.DemandLevel   `json:"demandLevel"`
	MarketOutlook     model.MarketOutlook `json:"marketOutlook"`
	TopSkills         []string            `json:"topSkills"`
	KeyTrends         []string            `json:"keyTrends"`
	RecommendedSkills []string            `json:"recommendedSkills"`
}

// Normalize coerces any decoded JSON value into a Normalized insight.
// Non-object input yields the all-defaults value. A Normalized (or pointer
// to one) is passed through with its defaults re-applied.
func Normalize(raw any) Normalized {
	switch v := raw.(type) {
	case Normalized:
		return v.withDefaults()
	case *Normalized:
		if v == nil {
			return Normalized{}.withDefaults()
		}
		return v.withDefaults()
	}

	obj, _ := raw.(map[string]any)
	return Normalized{
		SalaryRanges:      toSalaryRanges(lookup(obj, fieldSalaryRanges)),
		GrowthRate:        toNumber(lookup(obj, fieldGrowthRate)),
		DemandLevel:       toDemandLevel(lookup(obj, fieldDemandLevel)),
		MarketOutlook:     toMarketOutlook(lookup(obj, fieldMarketOutlook)),
		TopSkills:         toStrings(lookup(obj, fieldTopSkills)),
		KeyTrends:         toStrings(lookup(obj, fieldKeyTrends)),
		RecommendedSkills: toStrings(lookup(obj, fieldRecommendedSkills)),
	}
}

func (n Normalized) withDefaults() Normalized {
	out := Normalized{
		SalaryRanges:      append([]model.SalaryRange{}, n.SalaryRanges...),
		GrowthRate:        finite(n.GrowthRate),
		DemandLevel:       toDemandLevel(string(n.DemandLevel)),
		MarketOutlook:     toMarketOutlook(string(n.MarketOutlook)),
		TopSkills:         append([]string{}, n.TopSkills...),
		KeyTrends:         append([]string{}, n.KeyTrends...),
		RecommendedSkills: append([]string{}, n.RecommendedSkills...),
	}
	for i := range out.SalaryRanges {
		out.SalaryRanges[i].Min = finite(out.SalaryRanges[i].Min)
		out.SalaryRanges[i].Max = finite(out.SalaryRanges[i].Max)
		out.SalaryRanges[i].Median = finite(out.SalaryRanges[i].Median)
	}
	return out
}

// ApplyTo overwrites every content field of row with n. Key, id and
// timestamps are left to the caller.
func (n Normalized) ApplyTo(row *model.IndustryInsight) {
	row.SalaryRanges = n.SalaryRanges
	row.GrowthRate = n.GrowthRate
	row.DemandLevel = n.DemandLevel
	row.MarketOutlook = n.MarketOutlook
	row.TopSkills = n.TopSkills
	row.KeyTrends = n.KeyTrends
	row.RecommendedSkills = n.RecommendedSkills
}

// foldKey lowers a field name and drops separators, so "DemandLevel",
// "demandLevel" and "demand_level" compare equal.
func foldKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookup finds name in obj. An exact-case key with a non-empty value wins;
// otherwise folded matches are tried in sorted key order so the result does
// not depend on map iteration.
func lookup(obj map[string]any, name string) any {
	if obj == nil {
		return nil
	}
	if v, ok := obj[name]; ok && !isEmpty(v) {
		return v
	}

	want := foldKey(name)
	var keys []string
	for k := range obj {
		if k != name && foldKey(k) == want {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := obj[k]; !isEmpty(v) {
			return v
		}
	}
	return obj[name]
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func toSalaryRanges(v any) []model.SalaryRange {
	items, ok := v.([]any)
	if !ok {
		return []model.SalaryRange{}
	}
	out := make([]model.SalaryRange, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := toScalarString(lookup(obj, "role"))
		out = append(out, model.SalaryRange{
			Role:   role,
			Min:    toNumber(lookup(obj, "min")),
			Max:    toNumber(lookup(obj, "max")),
			Median: toNumber(lookup(obj, "median")),
		})
	}
	return out
}

// toNumber coerces numbers, json.Number and numeric strings ("12.5",
// "12.5%", "120,000") to float64. Anything else, and non-finite values,
// become 0.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	}
	return 0
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toDemandLevel(v any) model.DemandLevel {
	s, _ := v.(string)
	switch model.DemandLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case model.DemandHigh:
		return model.DemandHigh
	case model.DemandMedium:
		return model.DemandMedium
	case model.DemandLow:
		return model.DemandLow
	}
	return DefaultDemandLevel
}

func toMarketOutlook(v any) model.MarketOutlook {
	s, _ := v.(string)
	switch model.MarketOutlook(strings.ToUpper(strings.TrimSpace(s))) {
	case model.OutlookPositive:
		return model.OutlookPositive
	case model.OutlookNegative:
		return model.OutlookNegative
	}
	return DefaultMarketOutlook
}

// toStrings keeps string elements as-is and stringifies other scalars.
// Nulls, objects and nested arrays are dropped.
func toStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return append([]string{}, items...)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := toScalarString(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func toScalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	case int, int64:
		return fmt.Sprint(s), true
	}
	return "", false
}
