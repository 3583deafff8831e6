package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/eujobs/scraper/internal/model"
)

// Reason discriminates why a detail page did not yield a usable record.
type Reason string

const (
	NoEmbeddedScript  Reason = "no_embedded_script"
	MalformedPayload  Reason = "malformed_payload"
	EvaluationTimeout Reason = "evaluation_timeout"
	MissingJobPath    Reason = "missing_job_path"
)

// Error is the extraction failure type. It is recovered per job; it never
// aborts a run.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed (%s)", e.Reason)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// stateMarker is the global the server-rendered app assigns its state to.
// The site controls this format and may change it without notice.
const stateMarker = "window.__NUXT__"

// jobPath is the fixed path from the evaluated state to the job sub-record.
var jobPath = []string{"state", "jobs", "job"}

const defaultMaxNodes = 2_000_000

// Extractor pulls the job detail record out of the embedded state script of
// a detail page.
type Extractor struct {
	timeout  time.Duration
	maxNodes int
}

func New(timeout time.Duration) *Extractor {
	return &Extractor{timeout: timeout, maxNodes: defaultMaxNodes}
}

// Extract locates the embedded state assignment, evaluates its payload and
// returns the job record found at the known path. The input is never
// mutated; evaluation runs with no capability beyond literal construction
// and is bounded by the configured time budget.
func (e *Extractor) Extract(ctx context.Context, htmlDoc string) (*model.DetailRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return nil, &Error{Reason: NoEmbeddedScript, Err: err}
	}

	fragment := ""
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, stateMarker)
		if idx < 0 {
			return true
		}
		rest := text[idx+len(stateMarker):]
		rest = strings.TrimLeft(rest, " \t\r\n")
		if !strings.HasPrefix(rest, "=") {
			return true
		}
		fragment = rest[1:]
		return false
	})
	if fragment == "" {
		return nil, &Error{Reason: NoEmbeddedScript, Err: errors.New("no script assigns " + stateMarker)}
	}

	expr, err := isolateExpression(fragment)
	if err != nil {
		return nil, &Error{Reason: MalformedPayload, Err: err}
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	state, err := evalState(evalCtx, expr, e.maxNodes)
	if err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			return nil, ee
		}
		return nil, &Error{Reason: MalformedPayload, Err: err}
	}

	job, err := navigate(state, jobPath)
	if err != nil {
		return nil, &Error{Reason: MissingJobPath, Err: err}
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return nil, &Error{Reason: MalformedPayload, Err: err}
	}
	var record model.DetailRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &Error{Reason: MalformedPayload, Err: err}
	}
	return &record, nil
}

// isolateExpression returns the balanced expression at the start of src: the
// invoked function together with its trailing argument list. String literals
// are skipped so braces inside them cannot unbalance the scan.
func isolateExpression(src string) (string, error) {
	i := 0
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	if i >= len(src) || src[i] != '(' {
		return "", errors.New("state assignment does not start with an expression")
	}

	start := i
	depth := 0
	for i < len(src) {
		switch ch := src[i]; ch {
		case '"', '\'', '`':
			end, err := skipStringLiteral(src, i)
			if err != nil {
				return "", err
			}
			i = end
			continue
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
			if depth == 0 {
				j := i + 1
				for j < len(src) && isSpace(src[j]) {
					j++
				}
				// A following '(' is the IIFE's argument list; keep scanning.
				if j < len(src) && src[j] == '(' {
					i = j
					continue
				}
				return src[start : i+1], nil
			}
			if depth < 0 {
				return "", errors.New("unbalanced expression")
			}
		}
		i++
	}
	return "", errors.New("unterminated expression")
}

// skipStringLiteral returns the index just past the closing quote.
func skipStringLiteral(src string, start int) (int, error) {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1, nil
		}
		i++
	}
	return 0, errors.New("unterminated string literal")
}

func navigate(state any, path []string) (any, error) {
	current := state
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path segment %q: not an object", key)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("path segment %q: missing", key)
		}
	}
	if current == nil {
		return nil, errors.New("job record is null")
	}
	return current, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}
