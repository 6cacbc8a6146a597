package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFromSlice_Collect(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	p := FromSlice([]int{})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFromSlice_CopiesInput(t *testing.T) {
	items := []string{"a", "b"}
	p := FromSlice(items)
	items[0] = "z"
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"a", "b"}) {
		t.Errorf("source should not see later slice writes, got %v", got)
	}
}

func TestFrom_Iterator(t *testing.T) {
	iter := &sliceIter[string]{items: []string{"a", "b"}}
	p := From[string](iter)
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestSingle(t *testing.T) {
	got, err := Collect(context.Background(), Single("John"))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"John"}) {
		t.Errorf("got %v, want [John]", got)
	}
}

func TestFail(t *testing.T) {
	boom := errors.New("boom")
	got, err := Collect(context.Background(), Fail[int](boom))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no values, got %v", got)
	}
}

func TestRedriveRestartsFromSource(t *testing.T) {
	var calls int
	p := Map(Just(1, 2, 3), func(_ context.Context, n int) (int, error) {
		calls++
		return n, nil
	})
	for i := 0; i < 2; i++ {
		got, err := Collect(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		if !intSliceEqual(got, []int{1, 2, 3}) {
			t.Errorf("drive %d: got %v", i, got)
		}
	}
	if calls != 6 {
		t.Errorf("map should run again on every drive, calls=%d", calls)
	}
}

func TestMap(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	doubled := Map(p, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 6}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_Error(t *testing.T) {
	bad := errors.New("bad value")
	p := FromSlice([]int{1, 2, 3})
	fail := Map(p, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, bad
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
	te, ok := AsTransformError(err)
	if !ok {
		t.Fatalf("expected *TransformError, got %T", err)
	}
	if te.Stage != "map" || te.Index != 1 {
		t.Errorf("stage=%q index=%d, want map/1", te.Stage, te.Index)
	}
	if !errors.Is(err, bad) {
		t.Error("TransformError should unwrap to the stage error")
	}
}

func TestMap_Panic(t *testing.T) {
	p := Map(Just("a"), func(_ context.Context, s string) (string, error) {
		panic("exploded")
	})
	_, err := Collect(context.Background(), p)
	te, ok := AsTransformError(err)
	if !ok {
		t.Fatalf("expected *TransformError, got %v", err)
	}
	if !strings.Contains(te.Error(), "exploded") {
		t.Errorf("panic value should be reported, got %q", te.Error())
	}
}

func TestMap_TypeConversion(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	strs := Map(p, func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("#%d", n), nil
	})
	got, err := Collect(context.Background(), strs)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"#1", "#2", "#3"}
	if !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter(t *testing.T) {
	p := FromSlice([]int{1, 2, 3, 4, 5, 6})
	evens := Filter(p, func(n int) bool { return n%2 == 0 })
	got, err := Collect(context.Background(), evens)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 6}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_None(t *testing.T) {
	p := FromSlice([]int{1, 3, 5})
	evens := Filter(p, func(n int) bool { return n%2 == 0 })
	got, err := Collect(context.Background(), evens)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFilter_Panic(t *testing.T) {
	p := Filter(Just(1, 2), func(n int) bool {
		if n == 2 {
			panic("no twos")
		}
		return true
	})
	got, err := Collect(context.Background(), p)
	te, ok := AsTransformError(err)
	if !ok || te.Stage != "filter" || te.Index != 1 {
		t.Fatalf("expected filter TransformError at index 1, got %v", err)
	}
	if !intSliceEqual(got, []int{1}) {
		t.Errorf("expected [1] before failure, got %v", got)
	}
}

func TestFilterMapOrdering(t *testing.T) {
	names := Just("John", "Alice", "Bob", "Charlie", "David")
	upper := Map(names, func(_ context.Context, s string) (string, error) { return strings.ToUpper(s), nil })
	long := Filter(upper, func(s string) bool { return len(s) > 4 })
	prefixed := Map(long, func(_ context.Context, s string) (string, error) {
		return fmt.Sprintf("%d-%s", len(s), s), nil
	})

	got, err := Collect(context.Background(), long)
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"ALICE", "CHARLIE", "DAVID"}) {
		t.Errorf("filtered = %v", got)
	}
	got, err = Collect(context.Background(), prefixed)
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"5-ALICE", "7-CHARLIE", "5-DAVID"}) {
		t.Errorf("prefixed = %v", got)
	}

	// Prefixing first changes what the length predicate sees.
	prefixedFirst := Map(upper, func(_ context.Context, s string) (string, error) {
		return fmt.Sprintf("%d-%s", len(s), s), nil
	})
	got, err = Collect(context.Background(), Filter(prefixedFirst, func(s string) bool { return len(s) > 6 }))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"5-ALICE", "7-CHARLIE", "5-DAVID"}) {
		t.Errorf("reverse ordering = %v", got)
	}
}

func TestImmutability(t *testing.T) {
	names := Just("John", "Alice")
	_ = Map(names, func(_ context.Context, s string) (string, error) { return strings.ToUpper(s), nil })
	got, err := Collect(context.Background(), names)
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"John", "Alice"}) {
		t.Errorf("deriving a pipeline must not alter its source, got %v", got)
	}
}

func TestTap(t *testing.T) {
	var tapped []int
	p := FromSlice([]int{1, 2, 3})
	observed := Tap(p, func(_ context.Context, n int) error {
		tapped = append(tapped, n)
		return nil
	})
	got, err := Collect(context.Background(), observed)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("values should pass through unchanged, got %v", got)
	}
	if !intSliceEqual(tapped, []int{1, 2, 3}) {
		t.Errorf("tap should see all values, got %v", tapped)
	}
}

func TestTap_Error(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	failing := Tap(p, func(_ context.Context, n int) error {
		if n == 2 {
			return errors.New("tap failed")
		}
		return nil
	})
	_, err := Collect(context.Background(), failing)
	if err == nil || !strings.Contains(err.Error(), "tap failed") {
		t.Errorf("expected tap error, got %v", err)
	}
}

func TestReduce(t *testing.T) {
	p := FromSlice([]int{1, 2, 3, 4, 5})
	sum := Reduce(p, 0, func(acc, n int) int { return acc + n })
	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 15 {
		t.Errorf("expected [15], got %v", got)
	}
}

func TestReduce_Empty(t *testing.T) {
	p := FromSlice([]int{})
	sum := Reduce(p, 42, func(acc, n int) int { return acc + n })
	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("expected [42] (initial value), got %v", got)
	}
}

func TestConcat(t *testing.T) {
	a := FromSlice([]string{"A", "B", "C"})
	b := FromSlice([]string{"D", "E", "F"})
	got, err := Collect(context.Background(), ConcatWith(a, b))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A", "B", "C", "D", "E", "F"}
	if !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConcat_StartsLaterSourcesLazily(t *testing.T) {
	var started []string
	source := func(name string, items ...int) *Pipeline[int] {
		return FromFunc(func(ctx context.Context) Iterator[int] {
			started = append(started, name)
			return &sliceIter[int]{items: items}
		})
	}
	failing := Concat(Fail[int](errors.New("first failed")), source("second", 1))
	if _, err := Collect(context.Background(), failing); err == nil {
		t.Fatal("expected error from first source")
	}
	if len(started) != 0 {
		t.Errorf("second source should never start, started=%v", started)
	}

	got, err := Collect(context.Background(), Concat(source("a", 1, 2), source("b", 3), source("c", 4, 5)))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("got %v", got)
	}
}

func TestDefaultIfEmpty(t *testing.T) {
	empty := Filter(Just(1, 2, 3), func(n int) bool { return n > 10 })
	got, err := Collect(context.Background(), DefaultIfEmpty(empty, -1))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{-1}) {
		t.Errorf("expected [-1], got %v", got)
	}

	got, err = Collect(context.Background(), DefaultIfEmpty(Just(1, 2), -1))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2}) {
		t.Errorf("non-empty upstream should pass through, got %v", got)
	}
}

func TestSwitchIfEmpty(t *testing.T) {
	empty := Filter(Just("John", "Bob"), func(s string) bool { return len(s) > 10 })
	alternate := Just("D", "E", "F", "A", "U", "L", "T")
	got, err := Collect(context.Background(), SwitchIfEmpty(empty, alternate))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"D", "E", "F", "A", "U", "L", "T"}
	if !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSwitchIfEmpty_AlternateNotStarted(t *testing.T) {
	started := false
	alternate := FromFunc(func(ctx context.Context) Iterator[int] {
		started = true
		return &sliceIter[int]{items: []int{99}}
	})
	got, err := Collect(context.Background(), SwitchIfEmpty(Just(1), alternate))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1}) || started {
		t.Errorf("got %v started=%v, alternate should stay idle", got, started)
	}
}

func TestSwitchIfEmpty_ErrorIsNotEmpty(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(context.Background(), SwitchIfEmpty(Fail[int](boom), Just(1)))
	if !errors.Is(err, boom) {
		t.Errorf("upstream error must propagate, got %v", err)
	}
}

func TestTransform(t *testing.T) {
	upperLong := func(p *Pipeline[string]) *Pipeline[string] {
		upper := Map(p, func(_ context.Context, s string) (string, error) { return strings.ToUpper(s), nil })
		return Filter(upper, func(s string) bool { return len(s) > 3 })
	}
	got, err := Collect(context.Background(), Transform(Just("ann", "maria", "joe", "peter"), upperLong))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"MARIA", "PETER"}) {
		t.Errorf("got %v", got)
	}
}

func TestTake(t *testing.T) {
	got, err := Collect(context.Background(), Take(Just(1, 2, 3, 4), 2))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2}) {
		t.Errorf("got %v", got)
	}
}

// closeCountingIter counts up from zero and records how often it is closed.
type closeCountingIter struct {
	next   int
	closes int
}

func (it *closeCountingIter) Next(context.Context) (int, bool, error) {
	if it.closes > 0 {
		return 0, false, errors.New("read after close")
	}
	it.next++
	return it.next, true, nil
}

func (it *closeCountingIter) Close() error {
	it.closes++
	return nil
}

func TestTake_ClosesUpstreamAtLimit(t *testing.T) {
	src := &closeCountingIter{}
	p := Take(&Pipeline[int]{create: func(context.Context) Iterator[int] { return src }}, 2)

	ctx := context.Background()
	iter := p.Iter(ctx)
	if _, _, err := iter.Next(ctx); err != nil || src.closes != 0 {
		t.Fatalf("first value: err=%v closes=%d", err, src.closes)
	}
	if v, ok, err := iter.Next(ctx); err != nil || !ok || v != 2 {
		t.Fatalf("second value: v=%d ok=%v err=%v", v, ok, err)
	}
	if src.closes != 1 {
		t.Errorf("upstream should be closed once the limit is reached, closes=%d", src.closes)
	}
	if _, ok, err := iter.Next(ctx); ok || err != nil {
		t.Errorf("expected completion, got ok=%v err=%v", ok, err)
	}
	if err := iter.Close(); err != nil {
		t.Fatal(err)
	}
	if src.closes != 1 {
		t.Errorf("upstream closed %d times", src.closes)
	}
}

func TestDrain_Run(t *testing.T) {
	var collected []int
	p := FromSlice([]int{1, 2, 3})
	r := Drain(p, func(_ context.Context, n int) error {
		collected = append(collected, n)
		return nil
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(collected, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", collected)
	}
}

func TestForEach(t *testing.T) {
	var sum int
	p := FromSlice([]int{1, 2, 3})
	err := ForEach(context.Background(), p, func(_ context.Context, n int) error {
		sum += n
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}
}

func TestIter(t *testing.T) {
	p := FromSlice([]int{1, 2})
	ctx := context.Background()
	iter := p.Iter(ctx)
	defer iter.Close()

	v1, ok, err := iter.Next(ctx)
	if err != nil || !ok || v1 != 1 {
		t.Errorf("first Next: val=%d ok=%v err=%v", v1, ok, err)
	}
	v2, ok, err := iter.Next(ctx)
	if err != nil || !ok || v2 != 2 {
		t.Errorf("second Next: val=%d ok=%v err=%v", v2, ok, err)
	}
	_, ok, err = iter.Next(ctx)
	if err != nil || ok {
		t.Errorf("third Next should be exhausted: ok=%v err=%v", ok, err)
	}
}

func TestChained_Pipeline(t *testing.T) {
	// source → map → filter → tap → reduce
	var tapped []int
	p := FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	doubled := Map(p, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	evens := Filter(doubled, func(n int) bool { return n%4 == 0 })
	observed := Tap(evens, func(_ context.Context, n int) error {
		tapped = append(tapped, n)
		return nil
	})
	sum := Reduce(observed, 0, func(acc, n int) int { return acc + n })

	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	// doubled: 2..20 → %4==0: 4,8,12,16,20 → sum: 60
	if len(got) != 1 || got[0] != 60 {
		t.Errorf("expected [60], got %v", got)
	}
	if !intSliceEqual(tapped, []int{4, 8, 12, 16, 20}) {
		t.Errorf("tapped = %v, want [4 8 12 16 20]", tapped)
	}
}

func TestLog_PassesValuesThrough(t *testing.T) {
	got, err := Collect(context.Background(), Log(Just("a", "b"), nil, "letters"))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

// --- helpers ---

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
