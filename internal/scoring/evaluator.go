package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
	"github.com/mentoro/arena/pkg/utils"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// MaxScore is awarded when every test case passes
const MaxScore = 1000

const (
	submissionFile = "submission.star"
	maxReportLen   = 200
)

// Recursion and while loops stay disabled. Starlark has no call depth limit
// and a runaway recursive call exhausts the Go stack before the step budget.
func init() {
	resolve.AllowSet = true
	resolve.AllowGlobalReassign = true
}

// TestResult is the outcome of a single test case
type TestResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of evaluating one submission
type Result struct {
	Score   int          `json:"score"`
	Passed  int          `json:"passed"`
	Total   int          `json:"total"`
	Results []TestResult `json:"results,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Evaluator runs submissions in an interpreter with no I/O builtins
type Evaluator struct {
	timeout  time.Duration
	maxSteps uint64
}

func NewEvaluator(timeout time.Duration, maxSteps int64) *Evaluator {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &Evaluator{timeout: timeout, maxSteps: uint64(maxSteps)}
}

// Score converts a pass count into the 0..1000 scale, rounding to nearest
func Score(passed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(passed) / float64(total) * MaxScore))
}

// Evaluate runs the first top-level function of code against every test case.
// Failures never surface as errors; they lower the score.
func (e *Evaluator) Evaluate(ctx context.Context, code string, testCases []models.TestCase) Result {
	total := len(testCases)
	code = utils.NormalizeLineEndings(code)

	fnName, err := firstFunction(code)
	if err != nil {
		return e.failed(total, err)
	}

	globals, err := e.execModule(ctx, code)
	if err != nil {
		return e.failed(total, errors.Wrap(err, errors.ErrCodeEvaluationFailure, "submission failed to load"))
	}

	fn, ok := globals[fnName].(starlark.Callable)
	if !ok {
		return e.failed(total, errors.New(errors.ErrCodeEvaluationFailure, fmt.Sprintf("%s is not callable", fnName)))
	}

	result := Result{Total: total, Results: make([]TestResult, 0, total)}
	for _, tc := range testCases {
		tr := e.runCase(ctx, fn, tc)
		if tr.Passed {
			result.Passed++
		}
		result.Results = append(result.Results, tr)
	}
	result.Score = Score(result.Passed, result.Total)

	return result
}

func (e *Evaluator) failed(total int, err error) Result {
	logger.Debug("Submission evaluation failed", "error", err)
	return Result{Score: 0, Passed: 0, Total: total, Error: utils.Truncate(err.Error(), maxReportLen)}
}

// firstFunction returns the name of the first top-level def in code
func firstFunction(code string) (string, error) {
	file, err := syntax.Parse(submissionFile, code, 0)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEvaluationFailure, "syntax error")
	}
	for _, stmt := range file.Stmts {
		if def, ok := stmt.(*syntax.DefStmt); ok {
			return def.Name.Name, nil
		}
	}
	return "", errors.New(errors.ErrCodeEvaluationFailure, "no function definition found")
}

func (e *Evaluator) execModule(ctx context.Context, code string) (starlark.StringDict, error) {
	thread, done := e.newThread(ctx, "load")
	defer done()

	return starlark.ExecFile(thread, submissionFile, code, nil)
}

func (e *Evaluator) runCase(ctx context.Context, fn starlark.Callable, tc models.TestCase) TestResult {
	tr := TestResult{Input: tc.Input, Expected: tc.Output}

	thread, done := e.newThread(ctx, "test")
	defer done()

	args := starlark.Tuple{parseLiteral(thread, tc.Input)}
	if tuple, ok := args[0].(starlark.Tuple); ok {
		args = tuple
	}

	actual, err := starlark.Call(thread, fn, args, nil)
	if err != nil {
		tr.Error = utils.Truncate(err.Error(), maxReportLen)
		return tr
	}
	tr.Actual = utils.Truncate(actual.String(), maxReportLen)

	expected, err := starlark.Eval(thread, "output", tc.Output, nil)
	if err != nil {
		tr.Passed = display(actual) == tc.Output
		return tr
	}

	equal, err := starlark.Equal(actual, expected)
	if err != nil {
		tr.Error = utils.Truncate(err.Error(), maxReportLen)
		return tr
	}
	tr.Passed = equal
	return tr
}

// newThread returns a thread bounded by the step budget and the timeout
func (e *Evaluator) newThread(ctx context.Context, name string) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name:  name,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("evaluation timed out")
	})

	return thread, func() {
		stop()
		cancel()
	}
}

// parseLiteral evaluates s as an expression, falling back to the raw string
func parseLiteral(thread *starlark.Thread, s string) starlark.Value {
	v, err := starlark.Eval(thread, "input", s, nil)
	if err != nil {
		return starlark.String(s)
	}
	return v
}

func display(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}
