package service

import (
	"strings"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// DefaultGeoWeightThreshold is the geo weight above which a report escalates one tier.
const DefaultGeoWeightThreshold = 0.7

// DefaultSevereReasons start at HIGH instead of MEDIUM.
var DefaultSevereReasons = []models.ReasonCode{
	models.ReasonHateSpeech,
	models.ReasonThreat,
	models.ReasonViolence,
	models.ReasonSelfHarm,
	models.ReasonIllegalContent,
}

// PriorityScorer assigns a queue tier from the reason and external signals.
type PriorityScorer struct {
	severe       map[models.ReasonCode]struct{}
	geoThreshold float64
}

// NewPriorityScorer builds a scorer. Empty inputs fall back to the defaults.
func NewPriorityScorer(severe []models.ReasonCode, geoThreshold float64) *PriorityScorer {
	if len(severe) == 0 {
		severe = DefaultSevereReasons
	}
	if geoThreshold <= 0 {
		geoThreshold = DefaultGeoWeightThreshold
	}
	set := make(map[models.ReasonCode]struct{}, len(severe))
	for _, reason := range severe {
		set[reason] = struct{}{}
	}
	return &PriorityScorer{severe: set, geoThreshold: geoThreshold}
}

// Score computes the tier. The target kind does not change the tier today.
func (s *PriorityScorer) Score(reason models.ReasonCode, kind models.TargetType, signals models.ScoringSignals) models.Priority {
	priority := models.PriorityMedium
	if _, ok := s.severe[reason]; ok {
		priority = models.PriorityHigh
	}
	steps := 0
	if signals.AIUrgency != nil && strings.EqualFold(strings.TrimSpace(*signals.AIUrgency), models.AIUrgencyCritical) {
		steps++
	}
	if signals.GeoWeight != nil && *signals.GeoWeight > s.geoThreshold {
		steps++
	}
	return priority.Escalate(steps)
}
