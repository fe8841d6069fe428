// Package service composes the rule table and the trained model into a
// single specialist recommendation.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/model"
	"github.com/specialist-recommender/internal/textnorm"
)

// ModelProvider hands out the shared model bundle
type ModelProvider interface {
	Model(ctx context.Context) (*model.Bundle, error)
}

// PredictionCache memoizes model predictions. Implementations swallow and
// log their own failures.
type PredictionCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, specialist string)
}

// RecommenderService implements domain.Recommender
type RecommenderService struct {
	logger   *logrus.Logger
	rules    *RuleTable
	provider ModelProvider
	cache    PredictionCache
}

// RecommenderOption is a functional option for RecommenderService
type RecommenderOption func(*RecommenderService)

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) RecommenderOption {
	return func(s *RecommenderService) {
		s.logger = logger
	}
}

// WithRules replaces the default rule table
func WithRules(rules *RuleTable) RecommenderOption {
	return func(s *RecommenderService) {
		s.rules = rules
	}
}

// WithCache enables prediction memoization
func WithCache(cache PredictionCache) RecommenderOption {
	return func(s *RecommenderService) {
		s.cache = cache
	}
}

// NewRecommenderService creates a recommender backed by provider
func NewRecommenderService(provider ModelProvider, opts ...RecommenderOption) (*RecommenderService, error) {
	s := &RecommenderService{provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.rules == nil {
		rules, err := DefaultRules()
		if err != nil {
			return nil, err
		}
		s.rules = rules
	}
	return s, nil
}

// Recommend maps a symptom report to a specialist. Blank symptoms are
// rejected before any rule or model work. Keyword rules see only the
// symptoms; the model sees the disease label too.
func (s *RecommenderService) Recommend(ctx context.Context, report domain.SymptomReport) (*domain.Recommendation, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx, s.logger)

	if rule, ok := s.rules.Evaluate(report.Symptoms); ok {
		log.WithFields(logrus.Fields{
			"rule":       rule.Name,
			"specialist": rule.Specialist,
		}).Debug("Keyword rule matched")
		return &domain.Recommendation{
			Specialist: rule.Specialist,
			Source:     domain.SourceRule,
			RuleName:   rule.Name,
		}, nil
	}

	bundle, err := s.provider.Model(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	normalized := textnorm.Normalize(report.ModelInput())
	key := cacheKey(bundle.Version, normalized)

	if s.cache != nil {
		if specialist, ok := s.cache.Get(ctx, key); ok {
			return &domain.Recommendation{
				Specialist:   domain.SpecialistLabel(specialist),
				Source:       domain.SourceModel,
				ModelVersion: bundle.Version,
				Cached:       true,
			}, nil
		}
	}

	specialist, err := classify(bundle, normalized)
	if err != nil {
		log.WithError(err).Error("Model prediction failed")
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, specialist)
	}

	log.WithFields(logrus.Fields{
		"specialist":    specialist,
		"model_version": bundle.Version,
		"duration":      time.Since(start).String(),
	}).Debug("Model prediction completed")

	return &domain.Recommendation{
		Specialist:   domain.SpecialistLabel(specialist),
		Source:       domain.SourceModel,
		ModelVersion: bundle.Version,
	}, nil
}

// classify runs the vectorize, predict and decode stages
func classify(bundle *model.Bundle, normalized string) (specialist string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewProcessingError("prediction", fmt.Errorf("panic: %v", r))
		}
	}()

	features, err := bundle.Vectorizer.Transform(normalized)
	if err != nil {
		return "", domain.NewProcessingError("feature extraction", err)
	}
	idx, err := bundle.Classifier.Predict(features)
	if err != nil {
		return "", domain.NewProcessingError("prediction", err)
	}
	label, err := bundle.Labels.Decode(idx)
	if err != nil {
		return "", domain.NewProcessingError("label decoding", err)
	}
	return label, nil
}

func cacheKey(version, normalized string) string {
	return version + "|" + normalized
}
