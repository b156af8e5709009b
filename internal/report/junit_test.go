package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zk/qjunit/internal/naming"
)

func TestRender_FullDocument(t *testing.T) {
	agg := NewAggregator(nil)
	applyAll(agg, mathRun())

	want := `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
	<testsuite name="math" errors="1" failures="1" tests="2" time="1.53">
		<testcase classname="math" name="adds" assertions="2" time="0.03">
			<failure type="failed" message="expected 3">
	at math.js:4
			</failure>
		</testcase>
		<testcase classname="math" name="divides" assertions="1" time="1.50">
			<error type="failed" message="Died on test #2: evaluating expr">
	
TypeError: x is not defined
    at foo.js:1
			</error>
		</testcase>
	</testsuite>
</testsuites>
`
	assert.Equal(t, want, Render(agg.Result(), naming.DefaultPolicy()))
}

func TestRenderTimeout(t *testing.T) {
	agg := NewAggregator(nil)
	agg.OnSpawn("http://h/run.html")
	agg.OnTimeout()

	want := `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
	<testsuite name="global" errors="1" failures="0" tests="1" time="0.01">
		<testcase classname="global" name="main" assertions="1" time="0.01">
			<error type="timeout" message="Test timed out, possibly due to a missing start() call."></error>
		</testcase>
	</testsuite>
</testsuites>
`
	doc := Render(agg.Result(), naming.DefaultPolicy())
	assert.Equal(t, want, doc)
	assert.Equal(t, 1, strings.Count(doc, "<testsuite "))
	assert.Equal(t, 1, strings.Count(doc, "<testcase "))
	assert.Equal(t, want, RenderTimeout("http://h/run.html", naming.DefaultPolicy()))
}

func TestRender_NilResultIsTimeout(t *testing.T) {
	assert.Equal(t, RenderTimeout("", naming.DefaultPolicy()), Render(nil, naming.DefaultPolicy()))
}

func TestRender_EscapesNamesOnce(t *testing.T) {
	result := &SourceResult{
		Source: "s",
		Modules: []Module{{
			Name:  "<Module>",
			Total: 1,
			Tests: []Test{{
				Name:  `a & "b"`,
				Total: 1,
				Logs: []LogEntry{{
					Kind:    KindFailure,
					Message: "1 < 2 &amp; more",
					Source:  "at <anonymous>",
				}},
			}},
		}},
	}

	doc := Render(result, naming.DefaultPolicy())
	assert.Contains(t, doc, `<testsuite name="&lt;Module&gt;"`)
	assert.Contains(t, doc, `classname="&lt;Module&gt;" name="a &amp; &quot;b&quot;"`)
	assert.Contains(t, doc, `message="1 &lt; 2 &amp;amp; more"`)
	assert.Contains(t, doc, "\tat &lt;anonymous&gt;\n")
	assert.NotContains(t, doc, "&amp;lt;")
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<Module>", "&lt;Module&gt;"},
		{`"q" & 'a'`, "&quot;q&quot; &amp; 'a'"},
		{"&lt;", "&amp;lt;"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
	}

	once := Escape(`<&>"`)
	assert.NotEqual(t, once, Escape(once), "escaping twice must change the value")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{3, "0.01"},
		{0, "0.01"},
		{-5, "0.01"},
		{10, "0.01"},
		{math.NaN(), "0.01"},
		{math.Inf(1), "0.01"},
		{30, "0.03"},
		{1500, "1.50"},
		{1530, "1.53"},
		{61234, "61.23"},
		{125, "0.13"},
		{1125, "1.13"},
		{2625, "2.63"},
		{1005, "1.00"},
		{25, "0.03"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.ms), "FormatDuration(%v)", tt.ms)
	}
}

func TestSuiteDuration(t *testing.T) {
	tests := []Test{{DurationMs: 3}, {DurationMs: 1500}, {DurationMs: math.NaN()}}
	assert.Equal(t, 1520.0, SuiteDuration(tests))
	assert.Equal(t, "1.52", FormatDuration(SuiteDuration(tests)))
	assert.Equal(t, "0.01", FormatDuration(SuiteDuration(nil)))

	halves := []Test{{DurationMs: 100}, {DurationMs: 25}}
	assert.Equal(t, "0.13", FormatDuration(SuiteDuration(halves)))
}

func TestRender_UsesPolicy(t *testing.T) {
	policy := naming.Policy{
		ClassNamer: func(module, source string) string { return "pkg." + module },
		TestNamer:  func(test, module, source string) string { return module + ": " + test },
	}
	result := &SourceResult{
		Source:  "s",
		Modules: []Module{{Name: "m", Total: 1, Tests: []Test{{Name: "t", Total: 1, DurationMs: 3}}}},
	}

	doc := Render(result, policy)
	assert.Contains(t, doc, `<testsuite name="pkg.m" errors="0" failures="0" tests="1" time="0.01">`)
	assert.Contains(t, doc, `<testcase classname="pkg.m" name="m: t" assertions="1" time="0.01">`)
}
