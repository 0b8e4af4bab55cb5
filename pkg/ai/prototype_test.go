package ai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skillarena/arena-api/pkg/blob"
)

type fakeVision struct {
	responses map[string]string
	err       error
	requests  []VisionRequest
}

func (f *fakeVision) Evaluate(_ context.Context, req VisionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.responses[string(req.ImageData)], nil
}

type memoryStore map[string][]byte

func (m memoryStore) Save(_ context.Context, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m[name] = data
	return name, nil
}

func (m memoryStore) Get(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (m memoryStore) Delete(_ context.Context, path string) error {
	delete(m, path)
	return nil
}

func prototypeFixture() (memoryStore, []Attachment) {
	store := memoryStore{
		"answers/01.jpeg": []byte("image-01"),
		"answers/02.jpeg": []byte("image-02"),
	}
	answers := []Attachment{
		{ID: 1, Filename: "01.jpeg", Filepath: "answers/01.jpeg"},
		{ID: 2, Filename: "02.jpeg", Filepath: "answers/02.jpeg"},
	}
	return store, answers
}

func TestPrototypeStrategyObjectiveScoreClamped(t *testing.T) {
	store, answers := prototypeFixture()
	model := &fakeVision{responses: map[string]string{
		"image-01": "12.50",
	}}
	strategy := NewPrototypeStrategy(model, store, zerolog.Nop())

	criteria := Criteria{Items: []CriteriaItem{
		{ID: 10, Description: "login screen 01.jpeg matches the wireframe", EvaluationType: "objective", MaxScore: 5},
	}}

	results, err := strategy(context.Background(), criteria, nil, answers)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Score)
	require.InDelta(t, 5, *results[0].Score, 0.001, "scores above the item maximum are clamped")
	require.Nil(t, results[0].Suggestion)

	require.Len(t, model.requests, 1)
	require.True(t, model.requests[0].Objective)
	require.True(t, bytes.Equal(model.requests[0].ImageData, []byte("image-01")))
}

func TestPrototypeStrategySubjectiveSuggestion(t *testing.T) {
	store, answers := prototypeFixture()
	model := &fakeVision{responses: map[string]string{
		"image-02": "The navigation on 02 is cluttered; group the actions.",
	}}
	strategy := NewPrototypeStrategy(model, store, zerolog.Nop())

	criteria := Criteria{Items: []CriteriaItem{
		{ID: 11, Description: "overall impression of 02.jpeg", EvaluationType: "subjective", MaxScore: 3},
	}}

	results, err := strategy(context.Background(), criteria, nil, answers)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Nil(t, results[0].Score)
	require.NotNil(t, results[0].Suggestion)
	require.Contains(t, *results[0].Suggestion, "cluttered")
	require.False(t, model.requests[0].Objective)
}

func TestPrototypeStrategyMissingReferences(t *testing.T) {
	store, answers := prototypeFixture()
	model := &fakeVision{responses: map[string]string{}}
	strategy := NewPrototypeStrategy(model, store, zerolog.Nop())

	criteria := Criteria{Items: []CriteriaItem{
		{ID: 20, Description: "general craftsmanship", EvaluationType: "objective", MaxScore: 5},
		{ID: 21, Description: "detail view 09.jpeg is complete", EvaluationType: "objective", MaxScore: 5},
	}}

	results, err := strategy(context.Background(), criteria, nil, answers)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// No image reference in the description.
	require.Nil(t, results[0].Score)
	require.NotNil(t, results[0].Suggestion)
	require.Contains(t, *results[0].Suggestion, "does not reference an image")

	// Referenced image was never uploaded.
	require.Nil(t, results[1].Score)
	require.NotNil(t, results[1].Suggestion)
	require.Contains(t, *results[1].Suggestion, "09.jpeg")

	require.Empty(t, model.requests, "nothing reached the model")
}

func TestPrototypeStrategyItemFailureIsCaptured(t *testing.T) {
	store, answers := prototypeFixture()
	model := &fakeVision{err: errors.New("rate limited")}
	strategy := NewPrototypeStrategy(model, store, zerolog.Nop())

	criteria := Criteria{Items: []CriteriaItem{
		{ID: 30, Description: "login screen 01.jpeg matches the wireframe", EvaluationType: "objective", MaxScore: 5},
		{ID: 31, Description: "overall impression of 02.jpeg", EvaluationType: "subjective", MaxScore: 3},
	}}

	results, err := strategy(context.Background(), criteria, nil, answers)
	require.NoError(t, err, "item failures never fail the whole run")
	require.Len(t, results, 2)
	for _, result := range results {
		require.Nil(t, result.Score)
		require.NotNil(t, result.Suggestion)
		require.Contains(t, *result.Suggestion, "evaluation failed")
	}
}

func TestParseObjectiveScore(t *testing.T) {
	require.InDelta(t, 4.25, parseObjectiveScore("4.25", 10), 0.001)
	require.InDelta(t, 4.25, parseObjectiveScore("Score: 4.25.", 10), 0.001)
	require.InDelta(t, 10, parseObjectiveScore("15", 10), 0.001)
	require.Zero(t, parseObjectiveScore("no score here", 10))
}
