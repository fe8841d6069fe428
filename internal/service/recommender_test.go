package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/model"
	"github.com/specialist-recommender/internal/model/modeltest"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string]string
	sets  int
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]string)}
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key, specialist string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = specialist
	c.sets++
}

func newTestService(t *testing.T, provider ModelProvider, opts ...RecommenderOption) *RecommenderService {
	t.Helper()
	opts = append([]RecommenderOption{WithLogger(logging.Discard())}, opts...)
	svc, err := NewRecommenderService(provider, opts...)
	require.NoError(t, err)
	return svc
}

func missingModel() *modeltest.StaticProvider {
	return &modeltest.StaticProvider{Err: domain.NewModelNotFoundError("model", "artifacts not found", nil)}
}

func TestRecommend_RulesWorkWithoutModel(t *testing.T) {
	provider := missingModel()
	svc := newTestService(t, provider)

	tests := []struct {
		symptoms string
		expected domain.SpecialistLabel
	}{
		{"swelling in the scrotum", domain.Urologist},
		{"pain near the vulva", domain.Gynecologist},
		{"I have eye pain", domain.Ophthalmologist},
		{"itchy skin rash", domain.Dermatologist},
		{"groin ache and eye strain", domain.Urologist},
	}

	for _, tt := range tests {
		t.Run(tt.symptoms, func(t *testing.T) {
			rec, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: tt.symptoms})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec.Specialist)
			assert.Equal(t, domain.SourceRule, rec.Source)
			assert.Empty(t, rec.ModelVersion)
		})
	}
	assert.Equal(t, int64(0), provider.Calls(), "rule hits must not touch the model")
}

func TestRecommend_RulesIgnoreDisease(t *testing.T) {
	svc := newTestService(t, &modeltest.StaticProvider{Bundle: modeltest.Bundle(t, "v1")})

	rec, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "leg pain", Disease: "eye infection"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceModel, rec.Source)
}

func TestRecommend_ValidationBeforeAnyWork(t *testing.T) {
	provider := missingModel()
	svc := newTestService(t, provider)

	for _, symptoms := range []string{"", "   ", "\t\n"} {
		_, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: symptoms, Disease: "eye"})
		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr), "symptoms %q", symptoms)
		assert.Equal(t, domain.ErrValidation, domain.ErrorCode(err))
	}
	assert.Equal(t, int64(0), provider.Calls())
}

func TestRecommend_ModelFallback(t *testing.T) {
	bundle := modeltest.Bundle(t, "v7")
	svc := newTestService(t, &modeltest.StaticProvider{Bundle: bundle})

	tests := []struct {
		report   domain.SymptomReport
		expected string
	}{
		{domain.SymptomReport{Symptoms: "I have leg pain"}, modeltest.Orthopedist},
		{domain.SymptomReport{Symptoms: "pain", Disease: "chest"}, modeltest.Cardiologist},
		{domain.SymptomReport{Symptoms: "high fever and a cough"}, modeltest.GeneralPhysician},
	}

	for _, tt := range tests {
		t.Run(tt.report.Symptoms, func(t *testing.T) {
			rec, err := svc.Recommend(context.Background(), tt.report)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec.Specialist.String())
			assert.Equal(t, domain.SourceModel, rec.Source)
			assert.Equal(t, "v7", rec.ModelVersion)
			assert.True(t, bundle.Labels.Contains(rec.Specialist.String()))
		})
	}
}

func TestRecommend_ModelNotFound(t *testing.T) {
	svc := newTestService(t, missingModel())

	_, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "I have leg pain"})
	var notFound *domain.ModelNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, domain.ErrModelNotFound, domain.ErrorCode(err))
}

func TestRecommend_ProcessingError(t *testing.T) {
	good := modeltest.Bundle(t, "v1")
	broken := &model.Bundle{
		Vectorizer: good.Vectorizer,
		Classifier: good.Classifier,
		Labels:     &model.LabelEncoder{Classes: []string{"only"}},
		Version:    "broken",
	}
	svc := newTestService(t, &modeltest.StaticProvider{Bundle: broken})

	_, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "leg pain"})
	var procErr *domain.ProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, "label decoding", procErr.Stage)
}

func TestRecommend_CachesModelResults(t *testing.T) {
	cache := newMapCache()
	svc := newTestService(t, &modeltest.StaticProvider{Bundle: modeltest.Bundle(t, "v1")}, WithCache(cache))

	first, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "leg pains"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "Leg pain!"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Specialist, second.Specialist)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "eye pain"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "rule hits are not cached")
}

func TestRecommend_ConcurrentFirstCalls(t *testing.T) {
	fixture := modeltest.Bundle(t, "v1")
	loader := model.LoaderFunc(func(ctx context.Context) (*model.Bundle, error) {
		return fixture, nil
	})
	provider := model.NewProvider(loader, model.WithProviderLogger(logging.Discard()))
	svc := newTestService(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := svc.Recommend(context.Background(), domain.SymptomReport{Symptoms: "I have leg pain"})
			assert.NoError(t, err)
			assert.Equal(t, modeltest.Orthopedist, rec.Specialist.String())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), provider.LoadCount())
}
