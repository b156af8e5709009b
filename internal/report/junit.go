package report

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zk/qjunit/internal/naming"
)

// FloorMs is the minimum duration any test is reported with
const FloorMs = 10.0

// floorString is FloorMs formatted in seconds
const floorString = "0.01"

const xmlHeader = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<testsuites>\n"

// escaper replaces in a single pass, so entities it emits are never re-escaped
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape makes value safe for an XML attribute or text node
func Escape(value string) string {
	return escaper.Replace(value)
}

// FormatDuration renders milliseconds as seconds with two decimals.
// Values at or below the floor, and non-finite values, render as the floor.
func FormatDuration(ms float64) string {
	ms = floored(ms)
	if ms == FloorMs {
		return floorString
	}
	return toFixed2(ms / 1000)
}

// toFixed2 formats a positive value with two decimals, choosing the nearest
// hundredth of its exact binary value and rounding ties up. strconv rounds
// ties to even, which would render 0.125 as "0.12".
func toFixed2(v float64) string {
	r := new(big.Rat).SetFloat64(v)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))
	hundredths := new(big.Int).Quo(r.Num(), r.Denom()).Int64()
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}

// SuiteDuration sums test durations, each raised to the floor first
func SuiteDuration(tests []Test) float64 {
	total := 0.0
	for _, t := range tests {
		total += floored(t.DurationMs)
	}
	return total
}

func floored(ms float64) float64 {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < FloorMs {
		return FloorMs
	}
	return ms
}

// Render serializes a finished result as a JUnit XML document
func Render(result *SourceResult, policy naming.Policy) string {
	if result == nil {
		return RenderTimeout("", policy)
	}
	if result.TimedOut {
		return RenderTimeout(result.Source, policy)
	}

	var sb strings.Builder
	sb.WriteString(xmlHeader)

	for _, module := range result.Modules {
		suiteName := Escape(policy.Class(module.Name, result.Source))

		sb.WriteString("\t<testsuite")
		writeAttr(&sb, "name", suiteName)
		writeAttr(&sb, "errors", strconv.Itoa(module.Errored))
		writeAttr(&sb, "failures", strconv.Itoa(module.Failed))
		writeAttr(&sb, "tests", strconv.Itoa(len(module.Tests)))
		writeAttr(&sb, "time", FormatDuration(SuiteDuration(module.Tests)))
		sb.WriteString(">\n")

		for _, test := range module.Tests {
			sb.WriteString("\t\t<testcase")
			writeAttr(&sb, "classname", suiteName)
			writeAttr(&sb, "name", Escape(policy.Test(test.Name, module.Name, result.Source)))
			writeAttr(&sb, "assertions", strconv.Itoa(test.Total))
			writeAttr(&sb, "time", FormatDuration(test.DurationMs))
			sb.WriteString(">\n")

			for _, entry := range test.Logs {
				writeLogEntry(&sb, entry)
			}
			sb.WriteString("\t\t</testcase>\n")
		}
		sb.WriteString("\t</testsuite>\n")
	}

	sb.WriteString("</testsuites>\n")
	return sb.String()
}

// RenderTimeout produces the fixed document for a source that never completed
func RenderTimeout(source string, policy naming.Policy) string {
	suiteName := Escape(policy.Class(naming.GlobalModule, source))

	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString("\t<testsuite")
	writeAttr(&sb, "name", suiteName)
	writeAttr(&sb, "errors", "1")
	writeAttr(&sb, "failures", "0")
	writeAttr(&sb, "tests", "1")
	writeAttr(&sb, "time", floorString)
	sb.WriteString(">\n")

	sb.WriteString("\t\t<testcase")
	writeAttr(&sb, "classname", suiteName)
	writeAttr(&sb, "name", "main")
	writeAttr(&sb, "assertions", "1")
	writeAttr(&sb, "time", floorString)
	sb.WriteString(">\n")

	sb.WriteString("\t\t\t<error")
	writeAttr(&sb, "type", "timeout")
	writeAttr(&sb, "message", Escape(TimeoutMessage))
	sb.WriteString("></error>\n")

	sb.WriteString("\t\t</testcase>\n")
	sb.WriteString("\t</testsuite>\n")
	sb.WriteString("</testsuites>\n")
	return sb.String()
}

// writeAttr appends ` key="value"`; value must already be escaped
func writeAttr(sb *strings.Builder, key, value string) {
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteString(`="`)
	sb.WriteString(value)
	sb.WriteByte('"')
}

func writeLogEntry(sb *strings.Builder, entry LogEntry) {
	sb.WriteString("\t\t\t<")
	sb.WriteString(string(entry.Kind))
	writeAttr(sb, "type", "failed")
	writeAttr(sb, "message", Escape(entry.Message))
	sb.WriteString(">\n")
	if entry.Stack != "" {
		sb.WriteString("\t" + Escape(entry.Stack) + "\n")
	}
	if entry.Source != "" {
		sb.WriteString("\t" + Escape(entry.Source) + "\n")
	}
	sb.WriteString("\t\t\t</")
	sb.WriteString(string(entry.Kind))
	sb.WriteString(">\n")
}
