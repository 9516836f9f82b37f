package refine

import (
	"context"
	"errors"
	"testing"
)

// scripted collaborators replay canned behavior per call.

type scriptGen struct {
	outs  []string
	errs  []error
	calls int
}

func (g *scriptGen) Propose(ctx context.Context, rc RoundContext) (string, error) {
	i := g.calls
	g.calls++
	if i >= len(g.outs) {
		i = len(g.outs) - 1
	}
	if i < 0 {
		return "", errors.New("script exhausted")
	}
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	return g.outs[i], err
}

type scriptVal struct {
	results []ValidationResult
	errs    []error
	calls   int
}

func (v *scriptVal) Check(ctx context.Context, candidate string) (ValidationResult, error) {
	i := v.calls
	v.calls++
	if i >= len(v.results) {
		i = len(v.results) - 1
	}
	var err error
	if i < len(v.errs) {
		err = v.errs[i]
	}
	return v.results[i], err
}

type scriptScore struct {
	scores []float64
	calls  int
}

func (s *scriptScore) Score(ctx context.Context, candidate string, rc RoundContext) (float64, error) {
	i := s.calls
	s.calls++
	if i >= len(s.scores) {
		i = len(s.scores) - 1
	}
	return s.scores[i], nil
}

func passAll() *scriptVal {
	return &scriptVal{results: []ValidationResult{{Success: true}}}
}

func seededLoop(t *testing.T, gen *scriptGen, val Validator, sc Scorer, cfg Config) *Loop {
	t.Helper()
	l := New(gen, val, sc, cfg)
	if err := l.Initialize(context.Background(), "write a tiny program"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return l
}

func TestInitializeFatalAfterRetries(t *testing.T) {
	gen := &scriptGen{outs: []string{"garbage", "more garbage", "still no command"}}
	l := New(gen, passAll(), &scriptScore{scores: []float64{1}}, Config{})
	err := l.Initialize(context.Background(), "seed")
	var fatal *FatalInitializationError
	if !errors.As(err, &fatal) {
		t.Fatalf("want FatalInitializationError, got %v", err)
	}
	if fatal.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", fatal.Attempts)
	}
	if gen.calls != 3 {
		t.Fatalf("generator calls = %d, want 3", gen.calls)
	}
	if _, err := l.Run(context.Background(), 1, 0); err == nil {
		t.Fatalf("Run on uninitialized loop must fail")
	}
}

func TestRoundOneReplaceScenario(t *testing.T) {
	// Seed "print(1)"; round 1 replaces with "print(2)", validator passes,
	// scorer returns 5.
	gen := &scriptGen{outs: []string{
		FormatReplace("print(1)"),
		FormatReplace("print(2)"),
	}}
	sc := &scriptScore{scores: []float64{5}}
	l := seededLoop(t, gen, passAll(), sc, Config{})
	if l.Artifact() != "print(1)" {
		t.Fatalf("seed artifact = %q", l.Artifact())
	}

	rs, err := l.Run(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("retained len = %d, want 1", rs.Len())
	}
	best, _ := rs.Best()
	if best.Artifact != "print(2)" || best.Score != 5 {
		t.Fatalf("best = %+v", best)
	}
	if l.Artifact() != "print(2)" {
		t.Fatalf("current artifact = %q, want print(2)", l.Artifact())
	}
}

func TestFailedRoundRepairsThenAbandons(t *testing.T) {
	// Artifact "print(2)"; every proposal edits to "print(3)" and every
	// validation fails. After R repairs the round is abandoned, the
	// artifact is unchanged, and the scorer was never consulted.
	edit := FormatEdit("print(2)", "print(3)")
	gen := &scriptGen{outs: []string{FormatReplace("print(2)"), edit}}
	val := &scriptVal{results: []ValidationResult{{Success: false, Diagnostic: "SyntaxError"}}}
	sc := &scriptScore{scores: []float64{10}}
	l := seededLoop(t, gen, val, sc, Config{MaxRepairs: 3})

	rs, err := l.Run(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.Artifact() != "print(2)" {
		t.Fatalf("artifact = %q, want unchanged print(2)", l.Artifact())
	}
	if sc.calls != 0 {
		t.Fatalf("scorer consulted %d times for failing candidates", sc.calls)
	}
	if val.calls != 4 { // initial attempt + 3 repairs
		t.Fatalf("validator calls = %d, want 4", val.calls)
	}
	// Failed run still returns the committed artifact as fallback.
	best, ok := rs.Best()
	if !ok || best.Artifact != "print(2)" || best.Score != 0 {
		t.Fatalf("fallback entry = %+v ok=%v", best, ok)
	}
	// Round history stays within 1 + R entries past initialization.
	if got := l.History().Len() - 1; got > 1+3 {
		t.Fatalf("history entries for round = %d, want <= 4", got)
	}
}

func TestParseFailureEntersRepairLoop(t *testing.T) {
	gen := &scriptGen{outs: []string{
		FormatReplace("print(1)"),
		"no command at all",       // parse error, attempt 1
		FormatReplace("print(2)"), // repair succeeds
	}}
	sc := &scriptScore{scores: []float64{4}}
	l := seededLoop(t, gen, passAll(), sc, Config{})

	rs, err := l.Run(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	best, _ := rs.Best()
	if best.Artifact != "print(2)" {
		t.Fatalf("best = %+v", best)
	}
	hist := l.History().Entries()
	// init, failed parse, successful repair
	if len(hist) != 3 || hist[1].OK || !hist[2].OK {
		t.Fatalf("history = %+v", hist)
	}
}

func TestAnchorFailureEntersRepairLoop(t *testing.T) {
	gen := &scriptGen{outs: []string{
		FormatReplace("print(1)"),
		FormatEdit("print(7)", "print(3)"), // anchor absent
		FormatEdit("print(1)", "print(3)"), // repair with valid anchor
	}}
	sc := &scriptScore{scores: []float64{6}}
	l := seededLoop(t, gen, passAll(), sc, Config{})

	if _, err := l.Run(context.Background(), 1, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.Artifact() != "print(3)" {
		t.Fatalf("artifact = %q, want print(3)", l.Artifact())
	}
}

func TestThresholdStopsEarly(t *testing.T) {
	gen := &scriptGen{outs: []string{
		FormatReplace("print(1)"),
		FormatReplace("v1"),
		FormatReplace("v2"),
	}}
	sc := &scriptScore{scores: []float64{3, 9, 10}}
	l := seededLoop(t, gen, passAll(), sc, Config{})

	rs, err := l.Run(context.Background(), 5, 9)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.RoundsDone() != 2 {
		t.Fatalf("rounds done = %d, want 2 (stopped at threshold)", l.RoundsDone())
	}
	best, _ := rs.Best()
	if best.Score != 9 {
		t.Fatalf("best score = %v, want 9", best.Score)
	}
}

func TestTransportFailureAbortsRoundOnly(t *testing.T) {
	boom := errors.New("connection reset")
	gen := &scriptGen{
		outs: []string{FormatReplace("print(1)"), "", FormatReplace("print(2)")},
		errs: []error{nil, boom, nil},
	}
	sc := &scriptScore{scores: []float64{5}}
	l := seededLoop(t, gen, passAll(), sc, Config{})

	rs, err := l.Run(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.RoundsDone() != 2 {
		t.Fatalf("rounds done = %d, want 2", l.RoundsDone())
	}
	best, _ := rs.Best()
	if best.Artifact != "print(2)" {
		t.Fatalf("best = %+v", best)
	}
}

func TestHistoryBoundPerRound(t *testing.T) {
	const rounds, repairs = 4, 2
	gen := &scriptGen{outs: []string{FormatReplace("seed"), "never a command"}}
	val := &scriptVal{results: []ValidationResult{{Success: false, Diagnostic: "boom"}}}
	l := seededLoop(t, gen, val, &scriptScore{scores: []float64{1}}, Config{MaxRepairs: repairs})

	if _, err := l.Run(context.Background(), rounds, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Excluding the single initialization entry.
	if got, max := l.History().Len()-1, rounds*(1+repairs); got > max {
		t.Fatalf("history = %d entries, want <= %d", got, max)
	}
}

func TestCancellationPropagatesAndLeavesArtifact(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptGen{outs: []string{FormatReplace("print(1)"), FormatReplace("print(2)")}}
	l := seededLoop(t, gen, passAll(), &scriptScore{scores: []float64{5}}, Config{})

	cancel()
	_, err := l.Run(ctx, 3, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if l.Artifact() != "print(1)" {
		t.Fatalf("artifact = %q, want committed seed", l.Artifact())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	gen := &scriptGen{outs: []string{FormatReplace("print(1)"), FormatReplace("print(2)")}}
	sc := &scriptScore{scores: []float64{5}}
	l := seededLoop(t, gen, passAll(), sc, Config{})
	if _, err := l.Run(context.Background(), 1, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	b, err := EncodeState(l.Snapshot())
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	st, err := DecodeState(b)
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}

	l2 := New(&scriptGen{outs: []string{FormatReplace("print(3)")}}, passAll(), &scriptScore{scores: []float64{7}}, Config{})
	l2.Restore(st)
	if l2.Artifact() != "print(2)" || l2.RoundsDone() != 1 {
		t.Fatalf("restored artifact=%q rounds=%d", l2.Artifact(), l2.RoundsDone())
	}
	// A restored loop continues without re-initialization.
	rs, err := l2.Run(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Run() after restore error = %v", err)
	}
	best, _ := rs.Best()
	if best.Artifact != "print(3)" || best.Score != 7 {
		t.Fatalf("best after resume = %+v", best)
	}
}
