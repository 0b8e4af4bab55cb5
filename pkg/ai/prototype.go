package ai

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/pkg/blob"
)

// itemImagePattern extracts the two-digit image number an item description
// refers to, e.g. "layout of 03.jpeg matches the wireframe".
var (
	itemImagePattern = regexp.MustCompile(`(\d{2})\.jpeg`)
	numberPattern    = regexp.MustCompile(`[\d.]+`)
)

// NewPrototypeStrategy returns the app-prototype review strategy: contestants
// submit a numbered set of screen images (01.jpeg .. 10.jpeg) and each
// scoring item names the image it grades. Objective items yield a numeric
// score clamped to the item maximum; subjective items yield review text.
func NewPrototypeStrategy(model VisionModel, store blob.Store, logger zerolog.Logger) Strategy {
	log := logger.With().Str("component", "prototype_strategy").Logger()

	return func(ctx context.Context, criteria Criteria, _ []Attachment, answerAttachments []Attachment) ([]ItemResult, error) {
		results := make([]ItemResult, 0, len(criteria.Items))

		for _, item := range criteria.Items {
			result, err := evaluatePrototypeItem(ctx, model, store, item, answerAttachments)
			if err != nil {
				// One broken item must not sink the rest of the rubric.
				log.Error().Err(err).Uint("scoring_item_id", item.ID).Msg("scoring item evaluation failed")
				suggestion := fmt.Sprintf("evaluation failed: %v", err)
				result = ItemResult{ScoringItemID: item.ID, Suggestion: &suggestion}
			}
			results = append(results, result)
		}

		return results, nil
	}
}

func evaluatePrototypeItem(ctx context.Context, model VisionModel, store blob.Store, item CriteriaItem, answers []Attachment) (ItemResult, error) {
	match := itemImagePattern.FindStringSubmatch(item.Description)
	if match == nil {
		suggestion := "scoring item does not reference an image to evaluate"
		return ItemResult{ScoringItemID: item.ID, Suggestion: &suggestion}, nil
	}

	target := match[1] + ".jpeg"
	attachment, ok := findAttachment(answers, target)
	if !ok {
		suggestion := fmt.Sprintf("answer attachment not found: %s", target)
		return ItemResult{ScoringItemID: item.ID, Suggestion: &suggestion}, nil
	}

	image, err := store.Get(ctx, attachment.Filepath)
	if err != nil {
		return ItemResult{}, fmt.Errorf("load attachment %s: %w", target, err)
	}

	objective := item.EvaluationType == "objective"
	response, err := model.Evaluate(ctx, VisionRequest{
		ImageData: image,
		MIMEType:  "image/jpeg",
		Prompt:    buildPrototypePrompt(item, objective),
		Objective: objective,
	})
	if err != nil {
		return ItemResult{}, err
	}

	if objective {
		score := parseObjectiveScore(response, item.MaxScore)
		return ItemResult{ScoringItemID: item.ID, Score: &score}, nil
	}

	return ItemResult{ScoringItemID: item.ID, Suggestion: &response}, nil
}

func findAttachment(attachments []Attachment, filename string) (Attachment, bool) {
	for _, attachment := range attachments {
		if strings.EqualFold(attachment.Filename, filename) {
			return attachment, true
		}
	}
	return Attachment{}, false
}

func buildPrototypePrompt(item CriteriaItem, objective bool) string {
	builder := strings.Builder{}
	if objective {
		builder.WriteString("Score the image objectively against the following criterion:\n")
		builder.WriteString(item.Description)
		builder.WriteString(fmt.Sprintf("\n\nMaximum score: %.2f\n\n", item.MaxScore))
		builder.WriteString("Reply with the numeric score only, two decimal places, no other text.")
	} else {
		builder.WriteString("Review the image against the following criterion:\n")
		builder.WriteString(item.Description)
		builder.WriteString("\n\nProvide a detailed assessment with concrete suggestions for improvement.")
	}
	return builder.String()
}

func parseObjectiveScore(response string, maxScore float64) float64 {
	match := numberPattern.FindString(response)
	if match == "" {
		return 0
	}

	score, err := strconv.ParseFloat(strings.Trim(match, "."), 64)
	if err != nil {
		return 0
	}

	return math.Min(score, maxScore)
}
