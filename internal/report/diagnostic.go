package report

import (
	"regexp"

	"github.com/acarl005/stripansi"
)

// DefaultFailureMessage is used when the runner reports a failure without text
const DefaultFailureMessage = "Test failed"

// diePattern matches runner messages for uncaught exceptions:
// "Died on test #N <ws> <stack...>LINE: detail"
var diePattern = regexp.MustCompile(`(Died on test #[0-9]+)[ \t]+([\s\S]*)[0-9]+: (.*)`)

// Diagnostic is the structured form of a runner failure message
type Diagnostic struct {
	Kind    Kind
	Message string
	Stack   string
}

// ParseDiagnostic classifies a raw failure message. Messages matching the
// die pattern become errors carrying the captured stack; everything else is
// an assertion failure. ANSI escape sequences are removed first.
func ParseDiagnostic(raw string) Diagnostic {
	raw = stripansi.Strip(raw)
	if raw == "" {
		return Diagnostic{Kind: KindFailure, Message: DefaultFailureMessage}
	}

	match := diePattern.FindStringSubmatch(raw)
	if match == nil {
		return Diagnostic{Kind: KindFailure, Message: raw}
	}
	return Diagnostic{
		Kind:    KindError,
		Message: match[1] + ": " + match[3],
		Stack:   match[2],
	}
}
