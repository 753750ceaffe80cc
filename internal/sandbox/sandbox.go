package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://emkc.org/api/v2/piston"

	defaultTimeout  = 15 * time.Second
	maxSourceLength = 64 * 1024
)

type Language struct {
	Id      string `json:"id"`
	Version string `json:"version"`
}

var languages = map[string]Language{
	"python": {Id: "python", Version: "3.10.0"},
	"cpp":    {Id: "cpp", Version: "10.2.0"},
	"java":   {Id: "java", Version: "15.0.2"},
}

// LanguageFor resolves a language id to the runtime version the sandbox executes.
func LanguageFor(id string) (Language, error) {
	lang, ok := languages[id]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language %q", id)
	}
	return lang, nil
}

type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Executor runs untrusted source code somewhere other than this process.
type Executor interface {
	Execute(ctx context.Context, source string, lang Language) (Result, error)
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
}

type pistonStage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

type pistonResponse struct {
	Message string       `json:"message"`
	Compile *pistonStage `json:"compile"`
	Run     pistonStage  `json:"run"`
}

// PistonClient executes code on a Piston compatible API.
type PistonClient struct {
	log     *log.Logger
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewPistonClient(logger *log.Logger, baseURL string, rps float64) *PistonClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &PistonClient{
		log:     logger,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *PistonClient) Execute(ctx context.Context, source string, lang Language) (Result, error) {
	if len(source) > maxSourceLength {
		return Result{}, fmt.Errorf("source exceeds %d bytes", maxSourceLength)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(pistonRequest{
		Language: lang.Id,
		Version:  lang.Version,
		Files:    []pistonFile{{Content: source}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("execute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("execute: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var pr pistonResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	// a failed compile never reaches the run stage
	if pr.Compile != nil && pr.Compile.Code != nil && *pr.Compile.Code != 0 {
		p.log.Printf("sandbox: %s compile failed with code %d", lang.Id, *pr.Compile.Code)
		return stageResult(pr.Compile), nil
	}

	return stageResult(&pr.Run), nil
}

func stageResult(s *pistonStage) Result {
	res := Result{
		Stdout: s.Stdout,
		Stderr: s.Stderr,
		Output: s.Output,
	}

	switch {
	case s.Code != nil:
		res.ExitCode = *s.Code
	case s.Signal != "":
		// killed by the sandbox, usually a timeout
		res.ExitCode = -1
	}

	return res
}
