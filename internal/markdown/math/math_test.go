package math

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTypesetter struct {
	calls atomic.Int32
	fail  string
	css   string
}

func (f *fakeTypesetter) Typeset(_ context.Context, tex string, display bool) (string, error) {
	f.calls.Add(1)
	if tex == f.fail {
		return "", stderrors.New("bad tex")
	}
	if display {
		return "<mjx-d>" + tex + "</mjx-d>", nil
	}
	return "<mjx>" + tex + "</mjx>", nil
}

func (f *fakeTypesetter) Stylesheet() string { return f.css }

func TestRegistryPlaceholders(t *testing.T) {
	reg := NewRegistry()
	a := reg.Add("a", false)
	b := reg.Add("b", true)

	assert.NotEqual(t, a, b)
	assert.Regexp(t, PlaceholderPattern, a)
	assert.True(t, strings.HasPrefix(a, "<!-- math-"))
	assert.True(t, strings.HasSuffix(a, " -->"))

	jobs := reg.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{Placeholder: a, TeX: "a"}, jobs[0])
	assert.Equal(t, Job{Placeholder: b, TeX: "b", Display: true}, jobs[1])
	assert.Equal(t, 2, reg.Len())
}

func TestResolveAndSubstitute(t *testing.T) {
	ts := &fakeTypesetter{}
	reg := NewRegistry()
	var doc strings.Builder
	for _, tex := range []string{"x", "y", "z"} {
		doc.WriteString("<p>" + reg.Add(tex, false) + "</p>")
	}
	results, err := Resolve(context.Background(), ts, reg.Jobs())
	require.NoError(t, err)
	assert.EqualValues(t, 3, ts.calls.Load())

	out := Substitute(doc.String(), results)
	assert.Equal(t, "<p><mjx>x</mjx></p><p><mjx>y</mjx></p><p><mjx>z</mjx></p>", out)
	assert.NotRegexp(t, PlaceholderPattern, out)
}

func TestResolveWithoutJobs(t *testing.T) {
	ts := &fakeTypesetter{}
	results, err := Resolve(context.Background(), ts, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, ts.calls.Load())
	assert.Equal(t, "<p>plain</p>", Substitute("<p>plain</p>", results))
}

func TestResolveFailure(t *testing.T) {
	ts := &fakeTypesetter{fail: `\bad`}
	reg := NewRegistry()
	reg.Add("ok", false)
	reg.Add(`\bad`, true)

	_, err := Resolve(context.Background(), ts, reg.Jobs())
	require.Error(t, err)
	var mathErr *Error
	require.ErrorAs(t, err, &mathErr)
	assert.Equal(t, `\bad`, mathErr.TeX)
	assert.True(t, mathErr.Display)
}

func TestSubstitutePatchesMjxBreak(t *testing.T) {
	results := map[string]string{"<!-- math-1 -->": `<mjx-break size="3"> </mjx-break>`}
	out := Substitute("a <!-- math-1 --> b", results)
	assert.Equal(t, `a <mjx-break size="3">&nbsp;</mjx-break> b`, out)
}

func TestClientTypesetter(t *testing.T) {
	ts := ClientTypesetter{}
	inline, err := ts.Typeset(context.Background(), " a<b ", false)
	require.NoError(t, err)
	assert.Equal(t, `<span class="math math-inline" v-pre>\(a&lt;b\)</span>`, inline)

	display, err := ts.Typeset(context.Background(), `\sum x`, true)
	require.NoError(t, err)
	assert.Equal(t, `<div class="math math-display" v-pre>\[\sum x\]</div>`, display)
	assert.Empty(t, ts.Stylesheet())
}

func TestNewCommandTypesetterRequiresCommand(t *testing.T) {
	_, err := NewCommandTypesetter(nil, "")
	require.Error(t, err)
}

func TestCommandTypesetter(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	css := filepath.Join(t.TempDir(), "math.css")
	require.NoError(t, os.WriteFile(css, []byte("mjx-container{}"), 0o600))

	ts, err := NewCommandTypesetter([]string{"sh", "-c", `printf '<m>'; cat; printf '</m>'`}, css)
	require.NoError(t, err)

	out, err := ts.Typeset(context.Background(), "x^2", true)
	require.NoError(t, err)
	assert.Equal(t, "<m>x^2</m>", out)
	assert.Equal(t, "mjx-container{}", ts.Stylesheet())

	failing, err := NewCommandTypesetter([]string{"sh", "-c", "echo nope >&2; exit 3"}, "")
	require.NoError(t, err)
	_, err = failing.Typeset(context.Background(), "x", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Empty(t, failing.Stylesheet())
}
