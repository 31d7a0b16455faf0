package classifier

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jbplatform/relay/pkg/models"
)

// parseRoutingDecision turns raw model output into a routing decision.
// Models wrap JSON in prose or fences and omit fields they consider
// obvious, so parsing is lenient: the first {...} block is extracted,
// absent fields are filled with fallback defaults, and only then are the
// enum values checked strictly.
func parseRoutingDecision(text string) (models.RoutingDecision, error) {
	payload, err := extractJSONObject(text)
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("%w: %v", ErrUnusableOutput, err)
	}
	if !gjson.Valid(payload) {
		return models.RoutingDecision{}, fmt.Errorf("%w: invalid json", ErrUnusableOutput)
	}

	payload, err = fillDefaults(payload)
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("%w: %v", ErrUnusableOutput, err)
	}

	d := models.RoutingDecision{
		MessageKind:       models.MessageKind(gjson.Get(payload, "message_kind").String()),
		AssignTo:          models.WorkerID(gjson.Get(payload, "assign_to").String()),
		Priority:          models.Priority(gjson.Get(payload, "priority").String()),
		Reasoning:         gjson.Get(payload, "reasoning").String(),
		Confidence:        gjson.Get(payload, "confidence").Float(),
		SuggestedTaskKind: models.TaskKind(gjson.Get(payload, "suggested_task_kind").String()),
	}

	if !d.MessageKind.Valid() {
		return models.RoutingDecision{}, fmt.Errorf("%w: unknown message_kind %q", ErrUnusableOutput, d.MessageKind)
	}
	if !d.AssignTo.Valid() {
		return models.RoutingDecision{}, fmt.Errorf("%w: unknown assign_to %q", ErrUnusableOutput, d.AssignTo)
	}
	if !d.Priority.Valid() {
		return models.RoutingDecision{}, fmt.Errorf("%w: unknown priority %q", ErrUnusableOutput, d.Priority)
	}
	if !d.SuggestedTaskKind.Valid() {
		return models.RoutingDecision{}, fmt.Errorf("%w: unknown suggested_task_kind %q", ErrUnusableOutput, d.SuggestedTaskKind)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return models.RoutingDecision{}, fmt.Errorf("%w: confidence %v out of range", ErrUnusableOutput, d.Confidence)
	}
	return d, nil
}

// fillDefaults writes fallback values into fields the model omitted.
func fillDefaults(payload string) (string, error) {
	fb := Fallback()
	defaults := map[string]interface{}{
		"message_kind":        string(fb.MessageKind),
		"assign_to":           string(fb.AssignTo),
		"priority":            string(fb.Priority),
		"confidence":          fb.Confidence,
		"suggested_task_kind": string(fb.SuggestedTaskKind),
	}
	var err error
	for key, value := range defaults {
		if gjson.Get(payload, key).Exists() {
			continue
		}
		payload, err = sjson.Set(payload, key, value)
		if err != nil {
			return "", err
		}
	}
	return payload, nil
}

// extractJSONObject returns the outermost {...} block in text.
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("json object not found")
	}
	return text[start : end+1], nil
}
