package refine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config tunes one refinement loop. Zero values pick the defaults noted
// per field.
type Config struct {
	InitRetries   int       // generator attempts during Initialize (default 3)
	MaxRepairs    int       // repair attempts per round, R (default 3)
	HistoryWindow int       // prompt window M (default 3)
	RetainCap     int       // retained set capacity K (default 5)
	Selection     Selection // next-round basis policy (default BestOnly)
	Knowledge     Knowledge // optional cross-loop sharing
	Topic         string    // knowledge topic; defaults to the seed text
	Events        func(Event)
}

const (
	defaultInitRetries   = 3
	defaultMaxRepairs    = 3
	defaultHistoryWindow = 3

	// maxCommandRecord bounds how much raw command text one history entry
	// keeps; the full artifact still lives in the retained set.
	maxCommandRecord = 4000
)

// Loop drives repeated rounds of generate → validate → score → retain.
// One loop instance is strictly sequential; run concurrent loops as
// separate instances sharing nothing but an injected Knowledge store.
type Loop struct {
	gen    Generator
	val    Validator
	scorer Scorer
	cfg    Config

	seed        string
	artifact    string
	retained    *RetainedSet
	history     RoundHistory
	roundsDone  int
	initialized bool
}

func New(gen Generator, val Validator, scorer Scorer, cfg Config) *Loop {
	if cfg.InitRetries <= 0 {
		cfg.InitRetries = defaultInitRetries
	}
	if cfg.MaxRepairs <= 0 {
		cfg.MaxRepairs = defaultMaxRepairs
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Selection == nil {
		cfg.Selection = BestOnly{}
	}
	return &Loop{
		gen:      gen,
		val:      val,
		scorer:   scorer,
		cfg:      cfg,
		retained: NewRetainedSet(cfg.RetainCap),
	}
}

// Artifact returns the current committed artifact.
func (l *Loop) Artifact() string { return l.artifact }

// Retained exposes the loop's retained set.
func (l *Loop) Retained() *RetainedSet { return l.retained }

// History exposes the loop's append-only round history.
func (l *Loop) History() *RoundHistory { return &l.history }

// RoundsDone reports how many rounds of budget have been consumed.
func (l *Loop) RoundsDone() int { return l.roundsDone }

// Initialize invokes the generator in cold-start mode to produce the first
// artifact. It is the only loop operation with fatal failure semantics:
// if no parseable artifact comes back within the retry budget, the whole
// run is unrecoverable.
func (l *Loop) Initialize(ctx context.Context, seed string) error {
	if l.initialized {
		return nil
	}
	l.seed = seed
	var last error
	for attempt := 1; attempt <= l.cfg.InitRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return &FatalInitializationError{Attempts: attempt - 1, Last: err}
		}
		rc := l.roundContext(ctx, 0, attempt, false, "")
		rc.ColdStart = true
		raw, err := l.gen.Propose(ctx, rc)
		if err != nil {
			last = fmt.Errorf("generator: %w", err)
			l.record(HistoryEntry{Round: 0, Attempt: attempt, Diagnostic: last.Error()})
			continue
		}
		cand, diag, ok := applyRaw(raw, "")
		if !ok {
			last = errors.New(diag)
			l.record(HistoryEntry{Round: 0, Attempt: attempt, Command: truncate(raw), Diagnostic: diag})
			continue
		}
		l.artifact = cand
		l.initialized = true
		l.record(HistoryEntry{Round: 0, Attempt: attempt, Command: truncate(raw), OK: true})
		l.emit(Event{Type: EventInit, Attempt: attempt})
		return nil
	}
	return &FatalInitializationError{Attempts: l.cfg.InitRetries, Last: last}
}

// Run executes up to maxRounds rounds and returns the retained set. A
// positive scoreThreshold stops the run early once any round meets it.
// Round-local failures never propagate; only caller cancellation does.
// If every round failed, the returned set still carries the committed
// seed artifact (score 0, never validated) so callers always get a result.
func (l *Loop) Run(ctx context.Context, maxRounds int, scoreThreshold float64) (*RetainedSet, error) {
	if !l.initialized {
		return nil, errors.New("refine: loop is not initialized")
	}
	for i := 0; i < maxRounds; i++ {
		if err := ctx.Err(); err != nil {
			l.emit(Event{Type: EventCancelled, Round: l.roundsDone})
			return l.retained, err
		}
		round := l.roundsDone + 1
		l.emit(Event{Type: EventRound, Round: round})
		stop, err := l.runRound(ctx, round, scoreThreshold)
		l.roundsDone = round
		if err != nil {
			l.emit(Event{Type: EventCancelled, Round: round})
			return l.retained, err
		}
		if stop {
			break
		}
	}
	if l.retained.Len() == 0 {
		l.retained.Insert(ScoredArtifact{Artifact: l.artifact, Score: 0, Round: 0, At: time.Now()})
	}
	l.emit(Event{Type: EventComplete, Round: l.roundsDone})
	return l.retained, nil
}

// runRound performs one full round including the repair sub-loop. The
// returned error is non-nil only for caller cancellation; everything else
// is recorded and swallowed.
func (l *Loop) runRound(ctx context.Context, round int, threshold float64) (bool, error) {
	diag, done, stop, err := l.attemptOnce(ctx, round, 1, false, "", threshold)
	if err != nil || done {
		return stop, err
	}

	// Repair sub-loop: bounded corrective retries with the prior
	// diagnostic as additional context.
	for attempt := 2; attempt <= 1+l.cfg.MaxRepairs; attempt++ {
		l.emit(Event{Type: EventRepair, Round: round, Attempt: attempt - 1, Message: diag})
		var d string
		d, done, stop, err = l.attemptOnce(ctx, round, attempt, true, diag, threshold)
		if err != nil || done {
			return stop, err
		}
		diag = d
	}

	// Abandoned: the round counts against the budget and the committed
	// artifact stays unchanged.
	l.emit(Event{Type: EventRoundFail, Round: round, Message: diag})
	return false, nil
}

// attemptOnce runs a single generate/apply/validate/score attempt.
// done=true means the round is over (success, or a transport abort);
// otherwise the returned diagnostic feeds the next repair attempt.
func (l *Loop) attemptOnce(ctx context.Context, round, attempt int, repair bool, prevDiag string, threshold float64) (diag string, done, stop bool, err error) {
	rc := l.roundContext(ctx, round, attempt, repair, prevDiag)
	raw, gerr := l.gen.Propose(ctx, rc)
	if gerr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return "", true, false, cerr
		}
		msg := fmt.Sprintf("generator: %v", gerr)
		l.record(HistoryEntry{Round: round, Attempt: attempt, Diagnostic: msg})
		l.emit(Event{Type: EventTransport, Round: round, Attempt: attempt, Message: msg})
		return "", true, false, nil
	}

	cand, diag, ok := applyRaw(raw, l.artifact)
	if !ok {
		l.record(HistoryEntry{Round: round, Attempt: attempt, Command: truncate(raw), Diagnostic: diag})
		return diag, false, false, nil
	}

	res, verr := l.val.Check(ctx, cand)
	if verr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return "", true, false, cerr
		}
		msg := fmt.Sprintf("validator: %v", verr)
		l.record(HistoryEntry{Round: round, Attempt: attempt, Command: truncate(raw), Diagnostic: msg})
		l.emit(Event{Type: EventTransport, Round: round, Attempt: attempt, Message: msg})
		return "", true, false, nil
	}
	if !res.Success {
		l.record(HistoryEntry{Round: round, Attempt: attempt, Command: truncate(raw), Diagnostic: res.Diagnostic})
		return res.Diagnostic, false, false, nil
	}

	score, serr := l.scorer.Score(ctx, cand, rc)
	if serr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return "", true, false, cerr
		}
		msg := fmt.Sprintf("scorer: %v", serr)
		l.record(HistoryEntry{Round: round, Attempt: attempt, Command: truncate(raw), Diagnostic: msg})
		l.emit(Event{Type: EventTransport, Round: round, Attempt: attempt, Message: msg})
		return "", true, false, nil
	}

	l.record(HistoryEntry{Round: round, Attempt: attempt, Command: truncate(raw), OK: true, Score: score})
	l.retained.Insert(ScoredArtifact{Artifact: cand, Score: score, Round: round, At: time.Now()})
	l.emit(Event{Type: EventScore, Round: round, Attempt: attempt, Score: score})
	l.publish(ctx, round, score)

	// The candidate just entered the retained set, so BestOnly naturally
	// commits it when it is the best seen so far; an exploring policy may
	// instead seed the next round from any retained entry.
	if next, ok := l.cfg.Selection.Pick(l.retained); ok {
		l.artifact = next.Artifact
	}

	if threshold > 0 && score >= threshold {
		return "", true, true, nil
	}
	return "", true, false, nil
}

func (l *Loop) roundContext(ctx context.Context, round, attempt int, repair bool, diag string) RoundContext {
	rc := RoundContext{
		Seed:       l.seed,
		Artifact:   l.artifact,
		Round:      round,
		Attempt:    attempt,
		Repair:     repair,
		Diagnostic: diag,
		History:    l.history.Window(l.cfg.HistoryWindow),
	}
	if l.cfg.Knowledge != nil && !repair {
		if items, err := l.cfg.Knowledge.Query(ctx, l.topic()); err == nil {
			rc.External = items
		}
	}
	return rc
}

func (l *Loop) publish(ctx context.Context, round int, score float64) {
	if l.cfg.Knowledge == nil {
		return
	}
	summary := fmt.Sprintf("%s: round %d scored %.2f", l.topic(), round, score)
	_ = l.cfg.Knowledge.Publish(ctx, summary)
}

func (l *Loop) topic() string {
	if l.cfg.Topic != "" {
		return l.cfg.Topic
	}
	return truncateTo(l.seed, 120)
}

func (l *Loop) record(e HistoryEntry) { l.history.Append(e) }

func (l *Loop) emit(e Event) {
	if l.cfg.Events != nil {
		l.cfg.Events(e)
	}
}

// applyRaw parses raw generator output and applies the command to the
// artifact. Parse and anchor failures are round-local, reported via diag.
func applyRaw(raw, artifact string) (candidate, diag string, ok bool) {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return "", err.Error(), false
	}
	cand, err := cmd.Apply(artifact)
	if err != nil {
		return "", err.Error(), false
	}
	return cand, "", true
}

func truncate(s string) string { return truncateTo(s, maxCommandRecord) }

func truncateTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
