// Package model defines shared data structures for the coach service.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DemandLevel mirrors the demand_level enum in PostgreSQL.
type DemandLevel string

const (
	DemandLow    DemandLevel = "LOW"
	DemandMedium DemandLevel = "MEDIUM"
	DemandHigh   DemandLevel = "HIGH"
)

// MarketOutlook mirrors the market_outlook enum in PostgreSQL.
type MarketOutlook string

const (
	OutlookPositive MarketOutlook = "POSITIVE"
	OutlookNeutral  MarketOutlook = "NEUTRAL"
	OutlookNegative MarketOutlook = "NEGATIVE"
)

// ParseDemandLevel converts a stored enum value to a DemandLevel, returning
// an error for unknown values. It is strict: lenient coercion of generated
// text lives in the insight package.
func ParseDemandLevel(s string) (DemandLevel, error) {
	d := DemandLevel(s)
	switch d {
	case DemandLow, DemandMedium, DemandHigh:
		return d, nil
	}
	return "", fmt.Errorf("unknown demand level %q", s)
}

// ParseMarketOutlook converts a stored enum value to a MarketOutlook.
func ParseMarketOutlook(s string) (MarketOutlook, error) {
	o := MarketOutlook(s)
	switch o {
	case OutlookPositive, OutlookNeutral, OutlookNegative:
		return o, nil
	}
	return "", fmt.Errorf("unknown market outlook %q", s)
}

// SalaryRange is one role's compensation band inside an insight.
// Stored as an element of industry_insights.salary_ranges (JSONB).
type SalaryRange struct {
	Role   string  `json:"role"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// IndustryInsight mirrors a row of the industry_insights table.
type IndustryInsight struct {
	ID                string        `json:"id"`
	Industry          string        `json:"industry"`
	SalaryRanges      []SalaryRange `json:"salaryRanges"`
	GrowthRate        float64       `json:"growthRate"`
	DemandLevel       DemandLevel   `json:"demandLevel"`
	MarketOutlook     MarketOutlook `json:"marketOutlook"`
	TopSkills         []string      `json:"topSkills"`
	KeyTrends         []string      `json:"keyTrends"`
	RecommendedSkills []string      `json:"recommendedSkills"`
	LastUpdated       time.Time     `json:"lastUpdated"`
	NextUpdate        time.Time     `json:"nextUpdate"`
}

// User is the subset of the users table the coach service reads and writes.
// AuthID is the identity provider subject forwarded by the Gateway.
type User struct {
	ID         string    `json:"id"`
	AuthID     string    `json:"authId"`
	Email      string    `json:"email"`
	Name       *string   `json:"name"`
	Industry   *string   `json:"industry"`
	Bio        *string   `json:"bio"`
	Experience *int      `json:"experience"`
	Skills     []string  `json:"skills"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsOnboarded reports whether the user has picked an industry.
func (u *User) IsOnboarded() bool {
	return u != nil && u.Industry != nil && *u.Industry != ""
}

// QuizQuestion is one multiple-choice question produced for interview practice.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuestionResult records how the user answered a single quiz question.
type QuestionResult struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	UserAnswer  string `json:"userAnswer"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// Assessment mirrors a row of the assessments table.
type Assessment struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	QuizScore      float64          `json:"quizScore"`
	Questions      []QuestionResult `json:"questions"`
	Category       string           `json:"category"`
	ImprovementTip *string          `json:"improvementTip"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Resume mirrors a row of the resumes table: one markdown document per user.
type Resume struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is the payload published on Redis channels by the coach service.
type Event struct {
	Type     string          `json:"type"`
	Industry string          `json:"industry,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}
