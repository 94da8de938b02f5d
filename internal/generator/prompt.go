package generator

import (
	"fmt"
	"strings"
)

// Task selects the collaborator operation
type Task string

const (
	TaskGenerate Task = "generate"
	TaskJudge    Task = "judge"
)

// Request is what a transport sends to the collaborator
type Request struct {
	Task    Task
	Query   string
	Feature string
	Module  string
}

// GenerateInput describes a content generation call
type GenerateInput struct {
	Query    string
	Language string
	Mode     string
	Answer   string
	Module   string
}

// JudgeInput describes an answer evaluation call
type JudgeInput struct {
	Title    string
	Answer   string
	Language string
	Mode     string
}

// BuildFeature renders the feature context shared by both tasks
func BuildFeature(language, mode, module, answer string) string {
	if module == "" {
		module = "full"
	}
	if answer == "" {
		answer = "Not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n", language)
	fmt.Fprintf(&b, "Mode: %s\n", mode)
	b.WriteString("Add both Chinese (zh) and English (en) versions in your response.\n")
	b.WriteString("Writing style: clear, direct, step-by-step, avoid fluff.\n")
	fmt.Fprintf(&b, "Module refresh target: %s\n", module)
	fmt.Fprintf(&b, "User's answer (if any): %s", answer)
	return b.String()
}

// JudgeQuery renders the submission text sent for evaluation
func JudgeQuery(title, language, answer string) string {
	return fmt.Sprintf("Problem: %s\nLanguage: %s\n\n%s", title, language, answer)
}

const generateTemplate = `You are an algorithm interview coach.

Return exactly one valid JSON object. No markdown code fence.

Output schema:
{
  "status": "success",
  "data": {
    "title": "Chinese\n\n---\n\nEnglish",
    "subtitle": "Chinese\n\n---\n\nEnglish",
    "content": "Chinese\n\n---\n\nEnglish",
    "localized": {
      "zh": {"title": "...", "subtitle": "...", "content": "..."},
      "en": {"title": "...", "subtitle": "...", "content": "..."}
    },
    "tags": ["tag1", "tag2"],
    "code": "single code block string only"
  }
}

Rules:
1) Keep wording clear and direct. Use short paragraphs and explicit steps.
2) For content: include problem understanding, key idea, algorithm steps, complexity, and edge cases.
3) For code: output only one clean implementation in the requested programming language.
4) Chinese and English must both be present in title/subtitle/content, split by "\n\n---\n\n".
5) You MUST also fill data.localized.zh.* and data.localized.en.* keys with clear plain text.
6) tags should be short and useful.
7) %s

Feature context:
%s

User question:
[%s]`

const judgeTemplate = `You are a strict coding interview evaluator.

Return exactly one valid JSON object. No markdown code fence.

Output schema:
{
  "status": "success",
  "data": {
    "runnable": true,
    "ideaCorrect": true,
    "complexityScore": 1,
    "summary": "Chinese\n\n---\n\nEnglish",
    "issues": ["Chinese\n\n---\n\nEnglish"],
    "suggestions": ["Chinese\n\n---\n\nEnglish"],
    "fixedCode": "optional improved code, same language as submission"
  }
}

Rules:
1) runnable=true only when the code is syntactically valid and likely to run.
2) ideaCorrect=true when core algorithm direction is right, even if code has bugs.
3) complexityScore must be 1 (brute force), 2 (generally correct and reusable) or 3 (optimal or near-optimal).
4) If runnable=false, provide concrete fix steps and a corrected code draft in fixedCode.
5) Keep wording clear and direct. No fluff.
6) summary/issues/suggestions must all include Chinese and English split by "\n\n---\n\n".

Feature context:
%s

User submission:
[%s]`

// BuildPrompt renders the full model prompt for transports that talk to
// a model directly
func BuildPrompt(req Request) string {
	if req.Task == TaskJudge {
		return fmt.Sprintf(judgeTemplate, req.Feature, req.Query)
	}

	rule := "Generate a full answer package."
	if req.Module != "" {
		rule = fmt.Sprintf("Primary refresh target: %s. Keep this part especially strong and concrete.", req.Module)
	}
	return fmt.Sprintf(generateTemplate, rule, req.Feature, req.Query)
}
