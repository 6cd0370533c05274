// Package qa implements scripted interactive question/answer automation:
// scanning accumulated child output for patterns and writing back scripted
// answers, with cyclic answer reuse and a miss-count bailout.
//
// This is the Go-idiom rendering of the engine's QAEngine component (C7).
// It has no dependency on the cmdrun package — it operates purely on a
// byte buffer and a writer function, so it can be unit tested without
// spawning a process.
package qa

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MaxMissCount is the number of consecutive silent, non-matching polling
// iterations tolerated before a Run is terminated with [cmdrun.QAMissExitCode].
// A "miss" is counted only once the buffer has stopped growing and no
// no-question pattern explains the silence.
const MaxMissCount = 20

// Table is the question/answer dialogue script for a QA run.
//
//   - Exact maps a literal prompt string to a cyclic list of answers. The
//     literal is normalized by collapsing whitespace runs to `[\s\n]+` and
//     escaping regex metacharacters, so callers need not match exact
//     spacing.
//   - Reg maps a caller-supplied regular expression (augmented with a
//     trailing `[\s\n]*$` anchor) to a cyclic list of answers. Answers may
//     reference the regex's named capture groups via `%(name)s`.
//   - NoQA lists regular expressions that, when they match the unanswered
//     tail of the buffer, count as "still progressing" rather than a miss.
type Table struct {
	Exact map[string][]string
	Reg   map[string][]string
	NoQA  []string
}

// question is a compiled entry from Table, ordered for matching.
type question struct {
	key     string // original map key, used only for sort ordering
	pattern *regexp.Regexp
	answers *answerQueue
}

// Engine is a compiled, stateful Table bound to one run. It is not safe for
// concurrent use — callers (the LoopDriver) must invoke it from a single
// goroutine per the engine's single-logical-actor model.
type Engine struct {
	questions   []question // sorted exact entries, then sorted regex entries
	noQA        []*regexp.Regexp
	hitPosition int
	missCount   int
	prevLen     int
	addNewline  bool
	stop        func()
	warnShort   func(written, wanted int)
}

// Termination is returned by [Engine.Feed] when the dialogue must end the
// run, which happens only when the miss-count bailout fires. Answer lists
// are reused cyclically and never run out.
type Termination struct {
	Code   int
	Output string
}

// Compile builds an [Engine] from table. addNewline controls whether a
// trailing newline is appended to an answer that lacks one. Compile
// performs a self-match sanity check on every Exact entry: the compiled
// pattern must match the normalized literal it was derived from. That
// check is believed unreachable in practice (the normalization is a pure
// function of the literal), but is kept — per the engine's own
// documented uncertainty about its necessity — as a guard against a future
// bug in the normalization itself; failure is a programming error.
// stop is invoked exactly once, the moment the miss-count bailout fires, to
// shut down the child process; cleanup proceeds normally afterward. warnShort,
// if non-nil, is invoked whenever a QA answer is only partially written to
// the child's stdin, matching the engine's "warn but continue" behavior for
// a short write.
func Compile(table *Table, addNewline bool, stop func(), warnShort func(written, wanted int)) (*Engine, error) {
	e := &Engine{addNewline: addNewline, stop: stop, warnShort: warnShort}

	exactKeys := sortedKeys(table.Exact)
	for _, lit := range exactKeys {
		pat := normalizeLiteral(lit)
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("qa: compile exact question %q: %w", lit, err)
		}
		if !re.MatchString(collapseWhitespace(lit)) {
			return nil, fmt.Errorf("qa: internal error: compiled pattern for %q does not self-match", lit)
		}
		e.questions = append(e.questions, question{
			key:     lit,
			pattern: re,
			answers: newAnswerQueue(table.Exact[lit]),
		})
	}

	regKeys := sortedKeys(table.Reg)
	for _, pat := range regKeys {
		re, err := regexp.Compile(pat + `[\s\n]*$`)
		if err != nil {
			return nil, fmt.Errorf("qa: compile regex question %q: %w", pat, err)
		}
		e.questions = append(e.questions, question{
			key:     pat,
			answers: newAnswerQueue(table.Reg[pat]),
			pattern: re,
		})
	}

	for _, pat := range table.NoQA {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("qa: compile no_qa pattern %q: %w", pat, err)
		}
		e.noQA = append(e.noQA, re)
	}

	return e, nil
}

// Feed is called once per LoopDriver poll tick, whether or not a new chunk
// arrived, with buf holding the full accumulated output so far (any new
// chunk already appended) and send writing bytes
// to the child's stdin. It returns a non-nil [Termination] when the run
// must end (miss-count exceeded); otherwise nil.
//
// Matching scans only buf[e.hitPosition:] — material already answered is
// never re-matched, even if it happens to look like a later question.
func (e *Engine) Feed(buf []byte, send func([]byte) (int, error)) (*Termination, error) {
	tail := buf[e.hitPosition:]

	for i := range e.questions {
		q := &e.questions[i]
		loc := q.pattern.FindSubmatchIndex(tail)
		if loc == nil {
			continue
		}
		answer := q.answers.Next()
		rendered := render(answer, q.pattern, tail, loc)
		if e.addNewline && !strings.HasSuffix(rendered, "\n") {
			rendered += "\n"
		}
		n, err := send([]byte(rendered))
		if err != nil {
			return nil, fmt.Errorf("qa: write answer: %w", err)
		}
		if n < len(rendered) && e.warnShort != nil {
			e.warnShort(n, len(rendered))
		}

		e.missCount = 0
		e.hitPosition = len(buf)
		return nil, nil
	}

	if len(buf) > e.prevLen {
		e.prevLen = len(buf)
		return nil, nil
	}

	for _, re := range e.noQA {
		if re.Match(tail) {
			return nil, nil
		}
	}

	e.missCount++
	if e.missCount > MaxMissCount {
		if e.stop != nil {
			e.stop()
		}
		return &Termination{Code: 124, Output: string(buf)}, nil
	}
	return nil, nil
}

// render substitutes %(name)s placeholders in answer with the named capture
// groups of the match described by loc (as returned by
// FindSubmatchIndex against tail), Python-%-format style.
func render(answer string, re *regexp.Regexp, tail []byte, loc []int) string {
	names := re.SubexpNames()
	return placeholderRe.ReplaceAllStringFunc(answer, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		for i, n := range names {
			if n != name {
				continue
			}
			start, end := loc[2*i], loc[2*i+1]
			if start < 0 || end < 0 {
				return ""
			}
			return string(tail[start:end])
		}
		return m
	})
}

var placeholderRe = regexp.MustCompile(`%\((\w+)\)s`)

// normalizeLiteral turns a literal prompt into a regex pattern: whitespace
// runs collapse to `[\s\n]+`, each piece is regex-escaped, and the pattern
// is anchored at the end with `[\s\n]*$`.
func normalizeLiteral(lit string) string {
	fields := strings.Fields(lit)
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(escaped, `[\s\n]+`) + `[\s\n]*$`
}

// collapseWhitespace mirrors the whitespace-run collapsing normalizeLiteral
// applies to the pattern, but on the literal text, for the self-match check.
func collapseWhitespace(lit string) string {
	return strings.Join(strings.Fields(lit), " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
