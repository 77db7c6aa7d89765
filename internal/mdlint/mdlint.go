// Package mdlint checks markdown produced by the edit pipeline for
// structural problems: heading levels that skip more than one step,
// and fenced code blocks left unclosed. It reports findings only;
// whether to apply the content anyway is the caller's policy.
package mdlint

import (
	"fmt"
	"regexp"
	"strings"
)

// Finding kinds.
const (
	KindHeadingSkip   = "heading-skip"
	KindUnclosedFence = "unclosed-fence"
)

// Finding is one structural problem, located by 1-based line number.
// For heading skips, Got and Want carry the offending and expected
// levels. Fixable is true only for the unclosed-fence case.
type Finding struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Message string `json:"message"`
	Got     int    `json:"got,omitempty"`
	Want    int    `json:"want,omitempty"`
	Fixable bool   `json:"fixable"`
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s`)

// Check scans content and returns all findings in document order.
func Check(content string) []Finding {
	var findings []Finding

	prevLevel := 0
	fenceOpen := false
	fenceLine := 0

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimLeft(line, " \t")

		if strings.HasPrefix(trimmed, "```") {
			if fenceOpen {
				fenceOpen = false
			} else {
				fenceOpen = true
				fenceLine = lineNo
			}
			continue
		}
		if fenceOpen {
			// Headings inside code blocks are literal text.
			continue
		}

		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		if prevLevel > 0 && level > prevLevel+1 {
			findings = append(findings, Finding{
				Kind: KindHeadingSkip,
				Line: lineNo,
				Message: fmt.Sprintf("heading level jumps from %d to %d; expected at most %d",
					prevLevel, level, prevLevel+1),
				Got:  level,
				Want: prevLevel + 1,
			})
		}
		prevLevel = level
	}

	if fenceOpen {
		findings = append(findings, Finding{
			Kind:    KindUnclosedFence,
			Line:    fenceLine,
			Message: fmt.Sprintf("code fence opened on line %d is never closed", fenceLine),
			Fixable: true,
		})
	}

	return findings
}

// Fix applies the best-effort repair for the single unclosed-fence
// case: append a closing fence. All other findings require manual
// intervention. Returns the (possibly unchanged) content and whether
// anything was repaired.
func Fix(content string) (string, bool) {
	for _, f := range Check(content) {
		if f.Kind != KindUnclosedFence {
			continue
		}
		if strings.HasSuffix(content, "\n") {
			return content + "```\n", true
		}
		return content + "\n```", true
	}
	return content, false
}
