// Package matcher implements the matcher (C7): it reconciles decoded
// diagnostics against a file's annotations under level-completeness rules,
// and separately compares rendered output to golden files.
package matcher

import (
	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/diagnostics"
	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/level"
	"github.com/michaelciraci/ui-test/internal/mode"
)

// CheckAnnotations runs all three matcher phases plus the mode check for
// one revision of one file, per spec.md §4.3. effectiveMode is the
// revision's Mode override if it set one, else the Config default.
func CheckAnnotations(diag *diagnostics.Diagnostics, rev annotations.Revisioned, effectiveMode mode.Mode, exitCode int, testPath string) errs.Errors {
	var out errs.Errors

	if expected, ok := effectiveMode.ExpectedExit(); ok && exitCode != expected {
		out = append(out, errs.ExitStatusErr(effectiveMode, exitCode, expected))
	}

	unlocated := append([]diagnostics.Message{}, diag.Unlocated...)
	byLine := make(map[int][]diagnostics.Message, len(diag.ByLine))
	for line, msgs := range diag.ByLine {
		byLine[line] = append([]diagnostics.Message{}, msgs...)
	}

	// Phase 1: file-wide patterns consume from the unknown-location bucket.
	for _, ep := range rev.ErrorPatterns {
		idx := -1
		for i, m := range unlocated {
			if ep.Pattern.Matches(m.Text) {
				idx = i
				break
			}
		}
		if idx < 0 {
			out = append(out, errs.PatternNotFoundErr(ep.Pattern, ep.DefinitionLine))
			continue
		}
		unlocated = append(unlocated[:idx], unlocated[idx+1:]...)
	}

	// Phase 2: line-anchored patterns, tracking the lowest annotated level.
	lowest := level.Error
	for _, em := range rev.ErrorMatches {
		if em.Level < lowest {
			lowest = em.Level
		}
	}
	for _, em := range rev.ErrorMatches {
		bucket := byLine[em.Line]
		idx := -1
		for i, m := range bucket {
			if m.Level == em.Level && em.Pattern.Matches(m.Text) {
				idx = i
				break
			}
		}
		if idx < 0 {
			out = append(out, errs.PatternNotFoundErr(em.Pattern, em.DefinitionLine))
			continue
		}
		byLine[em.Line] = append(bucket[:idx], bucket[idx+1:]...)
	}

	// Phase 3: completeness.
	required := lowest
	if rev.RequireAnnotationsLevel != nil {
		required = *rev.RequireAnnotationsLevel
	}
	var leftoverUnlocated []diagnostics.Message
	for _, m := range unlocated {
		if m.Level >= required {
			leftoverUnlocated = append(leftoverUnlocated, m)
		}
	}
	if len(leftoverUnlocated) > 0 {
		out = append(out, errs.ErrorsWithoutPatternErr(leftoverUnlocated, testPath, 0, false))
	}
	for _, line := range sortedLines(byLine) {
		var leftover []diagnostics.Message
		for _, m := range byLine[line] {
			if m.Level >= required {
				leftover = append(leftover, m)
			}
		}
		if len(leftover) > 0 {
			out = append(out, errs.ErrorsWithoutPatternErr(leftover, testPath, line, true))
		}
	}

	hasPatterns := len(rev.ErrorPatterns) > 0 || len(rev.ErrorMatches) > 0
	switch effectiveMode.Kind {
	case mode.Pass, mode.Panic:
		if hasPatterns {
			out = append(out, errs.PatternFoundInPassTestErr())
		}
	case mode.Fail:
		if effectiveMode.RequirePatterns && !hasPatterns {
			out = append(out, errs.NoPatternsFoundErr())
		}
	}

	return out
}

func sortedLines(byLine map[int][]diagnostics.Message) []int {
	lines := make([]int, 0, len(byLine))
	for l := range byLine {
		lines = append(lines, l)
	}
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j-1] > lines[j]; j-- {
			lines[j-1], lines[j] = lines[j], lines[j-1]
		}
	}
	return lines
}
