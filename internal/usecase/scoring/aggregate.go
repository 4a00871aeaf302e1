// Package scoring turns metric results into category and overall scores.
//
// A boolean result scores 0 or 100 and a scale result is normalized to
// (v - min) / (max - min) * 100. Text results never score. A category score
// is the weighted mean of its scored metrics, and the overall score is the
// weighted mean of the categories that have a score. A weight sum of zero
// yields no score rather than a division by zero.
//
// Templates without categories use the legacy four-domain formula
// Σ weight·domainScore / 100. The two methods are never mixed.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// Input holds the answers a reviewer gives for one criteria
type Input struct {
	Results      []entities.MetricResult
	DomainScores *entities.DomainScores
}

// Result is a computed score. Method tells which formula produced Overall.
type Result struct {
	Method         entities.ScoringMethod   `json:"method"`
	Overall        *float64                 `json:"overall_score"`
	CategoryScores []entities.CategoryScore `json:"category_scores,omitempty"`
	DomainScores   *entities.DomainScores   `json:"domain_scores,omitempty"`
}

// MethodFor returns the formula a criteria is scored with
func MethodFor(criteria *entities.Criteria) entities.ScoringMethod {
	if criteria.HasCategories() {
		return entities.ScoringMethodCategory
	}
	return entities.ScoringMethodLegacy
}

// Aggregate validates in against the criteria tree and computes the score
func Aggregate(criteria *entities.Criteria, in Input) (*Result, error) {
	if criteria == nil {
		return nil, apperrors.ErrNotFound("Criteria")
	}
	switch MethodFor(criteria) {
	case entities.ScoringMethodCategory:
		if in.DomainScores != nil {
			return nil, apperrors.ErrScoringMethod("criteria is scored by category; domain scores are not accepted")
		}
		return aggregateCategories(criteria, in.Results)
	default:
		if len(in.Results) > 0 {
			return nil, apperrors.ErrScoringMethod("criteria has no categories; metric results are not accepted")
		}
		return aggregateLegacy(criteria.Weights, in.DomainScores)
	}
}

func aggregateCategories(criteria *entities.Criteria, results []entities.MetricResult) (*Result, error) {
	metrics := make(map[uuid.UUID]entities.Metric)
	for _, c := range criteria.Categories {
		for _, m := range c.Metrics {
			metrics[m.ID] = m
		}
	}

	normalized := make(map[uuid.UUID]float64, len(results))
	seen := make(map[uuid.UUID]struct{}, len(results))
	for _, r := range results {
		m, ok := metrics[r.MetricID]
		if !ok {
			return nil, apperrors.ErrNotFound("Metric").WithDetail("metric_id", r.MetricID.String())
		}
		if _, dup := seen[r.MetricID]; dup {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("metric %s answered more than once", r.MetricID))
		}
		seen[r.MetricID] = struct{}{}

		score, err := NormalizeResult(m, r.Value)
		if err != nil {
			return nil, err
		}
		if score != nil {
			normalized[r.MetricID] = *score
		}
	}

	res := &Result{Method: entities.ScoringMethodCategory}
	var total, weights float64
	for _, c := range criteria.Categories {
		var sum, w float64
		for _, m := range c.Metrics {
			s, ok := normalized[m.ID]
			if !ok {
				continue
			}
			sum += m.Weight * s
			w += m.Weight
		}
		cs := entities.CategoryScore{CategoryID: c.ID}
		if w > 0 {
			score := sum / w
			cs.Score = &score
			total += c.Weight * score
			weights += c.Weight
		}
		res.CategoryScores = append(res.CategoryScores, cs)
	}
	if weights > 0 {
		overall := total / weights
		res.Overall = &overall
	}
	return res, nil
}

func aggregateLegacy(weights entities.LegacyWeights, scores *entities.DomainScores) (*Result, error) {
	if scores == nil {
		return nil, apperrors.ErrInvalidResult("domain scores are required for criteria without categories")
	}
	var total float64
	w := weights.Values()
	for i, s := range scores.Values() {
		if math.IsNaN(s) || s < 0 || s > 100 {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("domain score %g is outside 0..100", s))
		}
		total += float64(w[i]) * s
	}
	overall := total / 100
	domains := *scores
	return &Result{
		Method:       entities.ScoringMethodLegacy,
		Overall:      &overall,
		DomainScores: &domains,
	}, nil
}

// NormalizeResult maps a raw result onto 0..100. Text metrics and empty
// values return nil.
func NormalizeResult(m entities.Metric, value any) (*float64, error) {
	if value == nil {
		return nil, nil
	}
	switch m.Type {
	case entities.MetricTypeBoolean:
		b, err := asBool(value)
		if err != nil {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("metric %q expects true/false or 0/1", m.Name)).
				WithDetail("metric_id", m.ID.String())
		}
		score := 0.0
		if b {
			score = 100
		}
		return &score, nil

	case entities.MetricTypeScale:
		v, err := asNumber(value)
		if err != nil || m.ScaleMin == nil || m.ScaleMax == nil {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("metric %q expects a number", m.Name)).
				WithDetail("metric_id", m.ID.String())
		}
		lo, hi := *m.ScaleMin, *m.ScaleMax
		if v < lo || v > hi {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("metric %q value %g is outside [%g, %g]", m.Name, v, lo, hi)).
				WithDetail("metric_id", m.ID.String())
		}
		score := (v - lo) / (hi - lo) * 100
		return &score, nil

	case entities.MetricTypeText:
		if _, ok := value.(string); !ok {
			return nil, apperrors.ErrInvalidResult(fmt.Sprintf("metric %q expects text", m.Name)).
				WithDetail("metric_id", m.ID.String())
		}
		return nil, nil
	}
	return nil, apperrors.ErrInvalidMetricType(string(m.Type))
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	default:
		n, err := asNumber(value)
		if err != nil {
			return false, err
		}
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("boolean result must be 0 or 1, got %g", n)
	}
}

func asNumber(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported result type %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("result must be finite")
	}
	return f, nil
}
