package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/terra-clan/practice-engine/internal/models"
)

// ExtractJSON returns the span from the first '{' to the last '}'
func ExtractJSON(output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return "", newError(ErrMalformed, fmt.Errorf("empty output"))
	}

	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || start > end {
		return "", newError(ErrMalformed, fmt.Errorf("no JSON object in output: %s", truncate(output, 300)))
	}
	return output[start : end+1], nil
}

func decodeGeneration(output string) (*models.GenerationResult, error) {
	raw, err := ExtractJSON(output)
	if err != nil {
		return nil, err
	}

	var result models.GenerationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, newError(ErrMalformed, fmt.Errorf("failed to decode generation result: %w", err))
	}
	return &result, nil
}

func decodeJudge(output string) (*models.JudgeResult, error) {
	raw, err := ExtractJSON(output)
	if err != nil {
		return nil, err
	}

	var result models.JudgeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, newError(ErrMalformed, fmt.Errorf("failed to decode judge result: %w", err))
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
