package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/service"
	"github.com/skillarena/arena-api/internal/utils"
)

type stubScoringService struct {
	service.ScoringService

	updateErr    error
	updateResult dto.ItemResultResponse
	lastModule   uint
	lastActor    service.Actor
	lastRequest  dto.JudgeScoreRequest
}

func (s *stubScoringService) UpdateJudgeScore(_ context.Context, moduleID, contestantID uint, req dto.JudgeScoreRequest, actor service.Actor) (dto.ItemResultResponse, error) {
	s.lastModule = moduleID
	s.lastActor = actor
	s.lastRequest = req
	if s.updateErr != nil {
		return dto.ItemResultResponse{}, s.updateErr
	}
	return s.updateResult, nil
}

func newScoringTestApp(stub *stubScoringService, userID uint, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	})

	h := NewScoringHandler(stub, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.Register(app.Group("/modules"))
	return app
}

func putScore(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, utils.APIResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPut, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestUpdateJudgeScoreEndpoint(t *testing.T) {
	score := 8.0
	stub := &stubScoringService{updateResult: dto.ItemResultResponse{ID: 1, ScoringItemID: 2, JudgeScore: &score}}
	app := newScoringTestApp(stub, 7, "judge")

	resp, decoded := putScore(t, app, "/modules/3/records/5/score", dto.JudgeScoreRequest{ScoringItemID: 2, JudgeScore: 8})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, decoded.Success)

	require.EqualValues(t, 3, stub.lastModule)
	require.Equal(t, service.Actor{ID: 7, Role: "judge"}, stub.lastActor)
	require.EqualValues(t, 2, stub.lastRequest.ScoringItemID)
}

func TestUpdateJudgeScoreEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"frozen", service.ErrScoringFrozen, fiber.StatusConflict},
		{"not scoring", service.ErrModuleNotScoring, fiber.StatusConflict},
		{"out of range", service.ErrScoreOutOfRange, fiber.StatusBadRequest},
		{"denied", service.ErrAccessDenied, fiber.StatusForbidden},
		{"unknown module", service.ErrModuleNotFound, fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubScoringService{updateErr: tc.err}
			app := newScoringTestApp(stub, 7, "judge")

			resp, decoded := putScore(t, app, "/modules/3/records/5/score", dto.JudgeScoreRequest{ScoringItemID: 2, JudgeScore: 8})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, decoded.Success)
		})
	}
}

func TestUpdateJudgeScoreEndpointValidation(t *testing.T) {
	stub := &stubScoringService{}
	app := newScoringTestApp(stub, 7, "judge")

	// Missing scoring_item_id fails validation before the service runs.
	resp, decoded := putScore(t, app, "/modules/3/records/5/score", map[string]interface{}{"judge_score": 8})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, decoded.Success)
	require.Zero(t, stub.lastModule)

	req := httptest.NewRequest(fiber.MethodPut, "/modules/not-a-number/records/5/score", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	badPath, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, badPath.StatusCode)
}
