package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/matsen/citeweave/internal/reference"
)

const (
	// LLMFast and LLMDeep are the registry names of the two model tiers.
	LLMFast = "llm-fast"
	LLMDeep = "llm-deep"

	// DefaultCommandTimeout bounds one CLI generation.
	DefaultCommandTimeout = 2 * time.Minute

	// maxContextLength limits the surrounding text sent with a prompt.
	maxContextLength = 600

	// maxLLMConfidence caps the match quality a model may claim.
	maxLLMConfidence = 0.9
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model through the GenAI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key is required", ErrAuthError)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate asks the model for a JSON answer at temperature zero.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("gemini: %w: %v", ErrNetworkError, err)
	}
	return resp.Text(), nil
}

// CommandGenerator runs a local model CLI, e.g. `claude --model haiku -p`.
// The prompt is passed as the final argument.
type CommandGenerator struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewClaudeCLI returns a generator for the claude CLI with the given model.
func NewClaudeCLI(model string) *CommandGenerator {
	if model == "" {
		model = "haiku"
	}
	return &CommandGenerator{Command: "claude", Args: []string{"--model", model, "-p"}}
}

// Generate runs the command and returns its trimmed stdout.
func (g *CommandGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), g.Args...), prompt)
	cmd := exec.CommandContext(ctx, g.Command, args...)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", g.Command, timeout)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s error: %s", g.Command, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s error: %w", g.Command, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// LLM asks a language model to identify a citation. It is the last tier
// of every route and is only consulted after free sources fail.
type LLM struct {
	name string
	cost Cost
	gen  Generator
}

// NewLLM wraps gen as a source with the given registry name and cost.
func NewLLM(name string, cost Cost, gen Generator) *LLM {
	return &LLM{name: name, cost: cost, gen: gen}
}

func (s *LLM) Name() string { return s.name }
func (s *LLM) Cost() Cost   { return s.cost }

// llmAnswer is the JSON shape the prompt asks for.
type llmAnswer struct {
	Found      bool     `json:"found"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Container  string   `json:"container"`
	Publisher  string   `json:"publisher"`
	Place      string   `json:"place"`
	Date       string   `json:"date"`
	Volume     string   `json:"volume"`
	Issue      string   `json:"issue"`
	Pages      string   `json:"pages"`
	DOI        string   `json:"doi"`
	ISBN       string   `json:"isbn"`
	URL        string   `json:"url"`
	CaseName   string   `json:"case_name"`
	Reporter   string   `json:"reporter"`
	Court      string   `json:"court"`
	Confidence float64  `json:"confidence"`
}

// Lookup prompts the model and parses its JSON answer.
func (s *LLM) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	out, err := s.gen.Generate(ctx, buildCitationPrompt(q))
	if err != nil {
		return reference.Metadata{}, err
	}
	ans, err := parseLLMAnswer(out)
	if err != nil {
		return reference.Metadata{}, fmt.Errorf("%s: %w: %v", s.name, ErrInvalidResponse, err)
	}
	if !ans.Found || (ans.Title == "" && ans.CaseName == "") {
		return reference.Metadata{}, fmt.Errorf("%s: %w", s.name, ErrNotFound)
	}
	m := ans.metadata(q)
	m.Engine = s.name
	return m, nil
}

func buildCitationPrompt(q Query) string {
	var b strings.Builder
	b.WriteString(`Identify the published work this citation refers to.

Citation: `)
	b.WriteString(q.Raw)
	b.WriteString("\n")
	if q.Kind != "" {
		fmt.Fprintf(&b, "Expected kind: %s\n", q.Kind)
	}
	if q.DOI != "" {
		fmt.Fprintf(&b, "DOI: %s\n", q.DOI)
	}
	if q.ISBN != "" {
		fmt.Fprintf(&b, "ISBN: %s\n", q.ISBN)
	}
	if q.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", q.URL)
	}
	if q.Context != "" {
		fmt.Fprintf(&b, "Surrounding text: %s\n", truncateUTF8(q.Context, maxContextLength))
	}
	b.WriteString(`
Return a JSON object with these fields: found (bool), kind (one of journal, book, legal_case, newspaper, webpage), title, authors (list of "Given Family" names), container, publisher, place, date (YYYY or YYYY-MM-DD), volume, issue, pages, doi, isbn, url, case_name, reporter, court, confidence (0 to 1).
If you are not certain the work exists, return {"found": false}. Do not invent identifiers.

Return ONLY the JSON object, no other text.`)
	return b.String()
}

func parseLLMAnswer(response string) (llmAnswer, error) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = extractFromCodeBlock(text)
	}
	var ans llmAnswer
	if err := json.Unmarshal([]byte(text), &ans); err != nil {
		return llmAnswer{}, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return ans, nil
}

// extractFromCodeBlock extracts content from a markdown code block.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	end := len(lines)
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func (a llmAnswer) metadata(q Query) reference.Metadata {
	kind := reference.Kind(a.Kind)
	if !reference.ValidKind(kind) || kind == reference.KindUnresolved {
		kind = q.Kind
	}
	m := reference.Metadata{
		Kind:        kind,
		Title:       a.Title,
		Authors:     reference.ParseAuthorNames(a.Authors),
		Container:   a.Container,
		Publisher:   a.Publisher,
		Place:       a.Place,
		Published:   reference.ParseDate(a.Date),
		Volume:      a.Volume,
		Issue:       a.Issue,
		Pages:       a.Pages,
		DOI:         reference.NormalizeDOI(a.DOI),
		ISBN:        reference.NormalizeISBN(a.ISBN),
		URL:         a.URL,
		CaseName:    a.CaseName,
		Reporter:    a.Reporter,
		Court:       a.Court,
		Confidence:  min(max(a.Confidence, 0), maxLLMConfidence),
		RetrievedAt: time.Now().UTC(),
	}
	if m.DOI != "" && !reference.ValidDOI(m.DOI) {
		m.DOI = ""
	}
	// Identifiers from the query are authoritative.
	if q.DOI != "" {
		m.DOI = q.DOI
	}
	if q.ISBN != "" {
		m.ISBN = q.ISBN
	}
	if m.URL == "" {
		m.URL = q.URL
	}
	if m.Kind == reference.KindLegalCase && m.CaseName == "" {
		m.CaseName = m.Title
	}
	return m
}

// truncateUTF8 truncates text to about maxLen bytes on a rune boundary.
func truncateUTF8(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	validLen := maxLen
	for validLen > 0 && !utf8.RuneStart(text[validLen]) {
		validLen--
	}
	return text[:validLen] + "..."
}
