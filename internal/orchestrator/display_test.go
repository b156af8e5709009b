package orchestrator

import (
	"testing"

	"github.com/acarl005/stripansi"
	"github.com/stretchr/testify/assert"

	"github.com/zk/qjunit/internal/report"
)

func TestFormatSummary(t *testing.T) {
	tests := []struct {
		name   string
		result *report.SourceResult
		want   string
	}{
		{
			name:   "timeout",
			result: report.TimeoutResult("s"),
			want:   "TIMEOUT out/TEST-s.xml (1 suite, 1 test, 0 failures, 1 error)",
		},
		{
			name: "failures and errors",
			result: &report.SourceResult{Source: "s", Modules: []report.Module{
				{Name: "a", Failed: 2, Errored: 1, Tests: make([]report.Test, 3)},
				{Name: "b", Tests: make([]report.Test, 2)},
			}},
			want: "FAIL out/TEST-s.xml (2 suites, 5 tests, 2 failures, 1 error)",
		},
		{
			name:   "empty run passes",
			result: &report.SourceResult{Source: "s"},
			want:   "PASS out/TEST-s.xml (0 suites, 0 tests, 0 failures, 0 errors)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripansi.Strip(formatSummary("out/TEST-s.xml", tt.result)))
		})
	}
}
