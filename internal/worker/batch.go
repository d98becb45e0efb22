package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/precedent/internal/model"
)

// Checker runs one claim through retrieval and consensus
type Checker interface {
	Check(ctx context.Context, claim string) (*model.Analysis, error)
}

// CheckJob checks one claim
type CheckJob struct {
	Index   int
	Claim   string
	Checker Checker
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	analysis, err := j.Checker.Check(ctx, j.Claim)
	return &CheckResult{Index: j.Index, Claim: j.Claim, Analysis: analysis, Error: err}
}

// CheckResult is the outcome of one claim
type CheckResult struct {
	Index    int
	Claim    string
	Analysis *model.Analysis
	Error    error
}

// GetError returns the check error
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many claims concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
	onResult    func(*CheckResult)
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// OnResult registers a callback invoked as each claim finishes, in completion order
func (b *BatchProcessor) OnResult(fn func(*CheckResult)) {
	b.onResult = fn
}

// ProcessClaims checks every claim and returns the results in input order.
// Claims not started before ctx is cancelled get ctx.Err() as their error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*CheckResult {
	out := make([]*CheckResult, len(claims))
	if len(claims) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, claim := range claims {
			if !pool.Submit(&CheckJob{Index: i, Claim: claim, Checker: b.checker}) {
				break
			}
		}
		pool.Close()
	}()

	for r := range pool.Results() {
		res := r.(*CheckResult)
		out[res.Index] = res
		if b.onResult != nil {
			b.onResult(res)
		}
	}

	for i, res := range out {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &CheckResult{Index: i, Claim: claims[i], Error: err}
		}
	}
	return out
}

// ReadClaimsFromFile reads one claim per line, skipping blanks, comments and duplicates
func ReadClaimsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
