package refactor

import (
	"fmt"
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/shortfunc/pkg/analysis"
)

func TestAnalyzeRejectsWholeBody(t *testing.T) {
	fn := loadFunc(t, `package p

func small(a int) int {
	b := a + 1
	c := b * 2
	return c
}
`, "small")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrWholeBody)
}

func TestAnalyzeReturnPlacement(t *testing.T) {
	fn := loadFunc(t, `package p

func early(a int) int {
	if a > 0 {
		return 1
	}
	b := a * 2
	b++
	return b
}
`, "early")

	_, err := analyze(t, fn, nil, 0, 1)
	assert.ErrorIs(t, err, ErrInnerReturn)

	c, err := analyze(t, fn, nil, 1, 3)
	require.NoError(t, err)
	assert.True(t, c.EndsInReturn)
	assert.Nil(t, c.Output)
	assert.Equal(t, []string{"a"}, paramNames(c))
}

func TestAnalyzeBreakScoping(t *testing.T) {
	fn := loadFunc(t, `package p

func loop(xs []int) int {
	sum := 0
	for _, x := range xs {
		if x < 0 {
			break
		}
		sum += x
		sum *= 2
	}
	return sum
}
`, "loop")

	// break targets the range statement outside the window
	_, err := analyze(t, fn, []int{1, 0}, 0, 1)
	assert.ErrorIs(t, err, ErrEscapingBranch)

	// the range statement is part of the window
	c, err := analyze(t, fn, nil, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, c.Output)
	assert.Equal(t, "sum", c.Output.Name())
	assert.True(t, c.OutputDeclared)
	assert.Equal(t, []string{"xs"}, paramNames(c))
}

func TestAnalyzeLoopCarriedOutput(t *testing.T) {
	fn := loadFunc(t, `package p

func loop(xs []int) int {
	sum := 0
	for _, x := range xs {
		x *= 2
		sum += x
		sum *= 2
	}
	return sum
}
`, "loop")

	// sum is read again by the next iteration, x is not
	c, err := analyze(t, fn, []int{1, 0}, 0, 2)
	require.NoError(t, err)
	require.NotNil(t, c.Output)
	assert.Equal(t, "sum", c.Output.Name())
	assert.False(t, c.OutputDeclared)
	assert.Equal(t, []string{"x", "sum"}, paramNames(c))
}

func TestAnalyzeContinueInsideSwitch(t *testing.T) {
	fn := loadFunc(t, `package p

func classify(xs []int) int {
	n := 0
	for _, x := range xs {
		switch {
		case x < 0:
			continue
		case x == 0:
			break
		}
		n++
		n *= 3
	}
	return n
}
`, "classify")

	// unlabeled continue in a switch targets the loop, which is outside
	_, err := analyze(t, fn, []int{1, 0}, 0, 2)
	assert.ErrorIs(t, err, ErrEscapingBranch)

	// break inside the switch targets the switch; continue still escapes
	_, err = analyze(t, fn, []int{1, 0}, 0, 1)
	assert.ErrorIs(t, err, ErrEscapingBranch)
}

func TestAnalyzeDeferAndRecover(t *testing.T) {
	fn := loadFunc(t, `package p

import "sync"

func guarded(mu *sync.Mutex, n int) int {
	mu.Lock()
	defer mu.Unlock()
	n++
	n *= 2
	return n
}
`, "guarded")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrFrameBound)

	c, err := analyze(t, fn, nil, 2, 4)
	require.NoError(t, err)
	assert.True(t, c.EndsInReturn)
}

func TestAnalyzeRecover(t *testing.T) {
	fn := loadFunc(t, `package p

func safe(n int) (err error) {
	n++
	if r := recover(); r != nil {
		n--
	}
	n *= 2
	println(n)
	return err
}
`, "safe")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrFrameBound)
}

func TestAnalyzeSingleOutput(t *testing.T) {
	fn := loadFunc(t, `package p

func two(a int) int {
	b := a + 1
	c := a + 2
	b++
	return b + c
}
`, "two")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrTooManyOutputs)
}

func TestAnalyzeParameterAsOutput(t *testing.T) {
	fn := loadFunc(t, `package p

func scale(x int) int {
	x *= 2
	x += 3
	x -= 1
	return x
}
`, "scale")

	c, err := analyze(t, fn, nil, 0, 2)
	require.NoError(t, err)
	require.NotNil(t, c.Output)
	assert.Equal(t, analysis.Param, c.Output.Kind)
	assert.False(t, c.OutputDeclared)
	assert.Equal(t, []string{"x"}, paramNames(c))
}

func TestAnalyzeNamedResults(t *testing.T) {
	fn := loadFunc(t, `package p

func named(a int) (r int) {
	r = a
	r++
	r *= 2
	return
}
`, "named")

	_, err := analyze(t, fn, nil, 1, 3)
	assert.ErrorIs(t, err, ErrBareNamedReturn)

	// named results are observed by the caller even without a later read
	c, err := analyze(t, fn, nil, 0, 2)
	require.NoError(t, err)
	require.NotNil(t, c.Output)
	assert.Equal(t, "r", c.Output.Name())
}

func TestAnalyzeBareReturnStaysBehind(t *testing.T) {
	fn := loadFunc(t, `package p

func log(a int) {
	println(a)
	println(a + 1)
	println(a + 2)
	return
}
`, "log")

	c, err := analyze(t, fn, nil, 1, 3)
	require.NoError(t, err)
	assert.True(t, c.KeepsReturn)
	assert.False(t, c.EndsInReturn)
}

func TestAnalyzeRejectsUnsafeSharing(t *testing.T) {
	fn := loadFunc(t, `package p

func misc(a int) int {
	const k = 2
	b := a * k
	c := 0
	f := func() { c++ }
	f()
	p := &b
	*p = 3
	b++
	return b + c
}
`, "misc")

	tests := []struct {
		first, last int
		want        error
	}{
		{1, 3, ErrLocalDecl},
		{3, 5, ErrClosureWrite},
		{5, 7, ErrAddressTaken},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.first, tt.last), func(t *testing.T) {
			_, err := analyze(t, fn, nil, tt.first, tt.last)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyzeRejectsVariablesSharedOutsideWindow(t *testing.T) {
	const src = `package p

func captured() int {
	x := 0
	get := func() int { return x }
	x = 1
	x += 2
	x *= 3
	return get()
}

func pointed() int {
	x := 0
	p := &x
	x = 1
	x += 2
	x *= 3
	return *p
}

func unrelated() int {
	x := 0
	y := 0
	get := func() int { return y }
	x = 1
	x += 2
	x *= 3
	return x + get()
}
`
	for _, name := range []string{"captured", "pointed"} {
		t.Run(name, func(t *testing.T) {
			_, err := analyze(t, loadFunc(t, src, name), nil, 2, 4)
			assert.ErrorIs(t, err, ErrSharedVar)
		})
	}

	c, err := analyze(t, loadFunc(t, src, "unrelated"), nil, 3, 5)
	require.NoError(t, err)
	require.NotNil(t, c.Output)
	assert.Equal(t, "x", c.Output.Name())
	assert.Equal(t, []string{"x"}, paramNames(c))
}

func TestAnalyzeParamShadow(t *testing.T) {
	fn := loadFunc(t, `package p

func shadow(a int) int {
	b := a
	if b > 0 {
		c := b
		b := c * 2
		c = b
		a = c
	}
	return a + b
}
`, "shadow")

	_, err := analyze(t, fn, []int{1, 0}, 0, 3)
	assert.ErrorIs(t, err, ErrParamShadow)
}

func TestAnalyzeShortRedeclarationOfParam(t *testing.T) {
	fn := loadFunc(t, `package p

import "strconv"

func parse(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(s + "0")
	m += n
	println(m)
	return n, nil
}
`, "parse")

	// err is reassigned, not declared, by the second short declaration
	c, err := analyze(t, fn, nil, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"err", "s", "n"}, paramNames(c))
	assert.Nil(t, c.Output)
}

func TestAnalyzeIgnoresOtherBranches(t *testing.T) {
	const src = `package p

func branch(ok bool, n int) int {
	v := 0
	if ok {
		n++
		n *= 2
		v = n
	} else {
		v = n
	}
	return v
}

func pick(k, n int) int {
	v := 0
	switch k {
	case 1:
		n++
		n *= 2
		v = n
	case 2:
		v = n
	}
	return v
}

func through(k, n int) int {
	v := 0
	switch k {
	case 1:
		n++
		n *= 2
		v = n
		fallthrough
	case 2:
		v += n
	}
	return v
}
`
	tests := []struct {
		name string
		path []int
	}{
		{"branch", []int{1, 0}},
		{"pick", []int{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := analyze(t, loadFunc(t, src, tt.name), tt.path, 0, 2)
			require.NoError(t, err)
			require.NotNil(t, c.Output)
			assert.Equal(t, "v", c.Output.Name())
			assert.Equal(t, []string{"n", "v"}, paramNames(c))
		})
	}

	// the next clause still runs after a fallthrough
	_, err := analyze(t, loadFunc(t, src, "through"), []int{1, 0, 0}, 0, 2)
	assert.ErrorIs(t, err, ErrTooManyOutputs)
}

func TestAnalyzeRejectsLoneBareReturn(t *testing.T) {
	fn := loadFunc(t, `package p

func log(a int) {
	if a > 0 {
		println(a)
		return
	}
	println(-a)
}
`, "log")

	opts := DefaultOptions()
	opts.MinStatements = 1
	_, err := newLegalityAnalyzer(fn, opts).Analyze(windowOf(t, fn, []int{0, 0}, 1, 1))
	assert.ErrorIs(t, err, ErrOnlyReturn)

	cands := newCandidateEnumerator(fn, opts, testLogger()).Enumerate()
	require.NotEmpty(t, cands)
	synth := newMethodSynthesizer(fn)
	for _, c := range cands {
		assert.NotPanics(t, func() {
			_, _ = synth.Synthesize(c)
		}, "%v:%d-%d", c.Path, c.First, c.Last)
	}
}

func TestAnalyzeCrossingGoto(t *testing.T) {
	fn := loadFunc(t, `package p

func jumps(n int) int {
	if n > 10 {
		goto done
	}
	n++
	n *= 2
done:
	n--
	return n
}
`, "jumps")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrCrossingJump)

	// the label is in the window but the goto is not
	_, err = analyze(t, fn, nil, 1, 3)
	assert.ErrorIs(t, err, ErrCrossingJump)
}

func TestAnalyzeLockCopy(t *testing.T) {
	fn := loadFunc(t, `package p

import "sync"

type counter struct {
	mu sync.Mutex
	n  int
}

func bump(c counter) int {
	c.n++
	c.n *= 2
	c.n--
	return c.n
}
`, "bump")

	_, err := analyze(t, fn, nil, 0, 2)
	assert.ErrorIs(t, err, ErrCopyUnsafe)
}

func TestAnalyzeStrictInit(t *testing.T) {
	fn := loadFunc(t, `package p

func later(ok bool) int {
	var v int
	if ok {
		v = 1
	}
	println(v)
	v++
	println(v)
	return v
}
`, "later")

	opts := DefaultOptions()
	w := windowOf(t, fn, nil, 2, 4)

	_, err := newLegalityAnalyzer(fn, opts).Analyze(w)
	require.NoError(t, err)

	opts.StrictInit = true
	_, err = newLegalityAnalyzer(fn, opts).Analyze(w)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestEnumerateOrder(t *testing.T) {
	fn := loadFunc(t, `package p

func order(ok bool) {
	println(1)
	if ok {
		println(2)
		println(3)
		println(4)
	}
	println(5)
	println(6)
}
`, "order")

	cands := newCandidateEnumerator(fn, DefaultOptions(), testLogger()).Enumerate()

	var got []string
	for _, c := range cands {
		got = append(got, fmt.Sprintf("%v:%d-%d", c.Path, c.First, c.Last))
	}
	assert.Equal(t, []string{"[1 0]:0-2", "[]:0-2", "[]:1-3"}, got)
	assert.Equal(t, []string{"ok"}, paramNames(cands[1]))
}

func TestEnumerateNeverReturnsWholeBodyOrInnerReturn(t *testing.T) {
	fn := loadFunc(t, `package p

func pick(xs []int) int {
	best := -1
	for i, x := range xs {
		if x > 100 {
			return i
		}
		if x > best {
			best = x
		}
	}
	println(best)
	best *= 2
	println(best)
	return best
}
`, "pick")

	cands := newCandidateEnumerator(fn, DefaultOptions(), testLogger()).Enumerate()
	require.NotEmpty(t, cands)
	for _, c := range cands {
		if len(c.Path) == 0 {
			assert.False(t, c.First == 0 && c.Last == len(fn.decl.Body.List)-1, "whole body")
		}
		for _, s := range c.Stmts[:len(c.Stmts)-1] {
			assert.False(t, containsReturn(s), "return before the end of %v:%d-%d", c.Path, c.First, c.Last)
		}
	}
}

func containsReturn(s ast.Stmt) bool {
	found := false
	ast.Inspect(s, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			found = true
		}
		return !found
	})
	return found
}
