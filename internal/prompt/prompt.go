// Package prompt assembles the generation prompt sent to the model providers.
package prompt

import "strings"

const basePrompt = `You are an expert Python developer and unit-test writer.
Given the following Python function, write a clear, human-readable pytest unit test file that:
- uses descriptive test names
- includes docstring explaining what's being tested
- tests normal and an edge case if obvious
- is executable (no external dependencies)
Return only the test file contents (no extra commentary).
`

type fewShotExample struct {
	Func string
	Test string
}

var fewShotExamples = []fewShotExample{
	{
		Func: "def add(a, b):\n    return a + b\n",
		Test: "def test_add_two_positive_numbers():\n" +
			"    \"\"\"Check add returns sum of two positive integers.\"\"\"\n" +
			"    assert add(3, 5) == 8\n\n" +
			"def test_add_with_zero():\n" +
			"    \"\"\"Check add returns the other operand if one is zero.\"\"\"\n" +
			"    assert add(0, 7) == 7\n",
	},
}

// Build produces the full prompt for one source function, optionally with up
// to n few-shot example pairs.
func Build(funcSrc string, includeExamples bool, n int) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nFunction:\n")
	b.WriteString(funcSrc)
	b.WriteString("\n\n")
	if includeExamples {
		b.WriteString("\n\nExamples:\n")
		if n < 0 {
			n = 0
		}
		if n > len(fewShotExamples) {
			n = len(fewShotExamples)
		}
		for _, ex := range fewShotExamples[:n] {
			b.WriteString("Function:\n")
			b.WriteString(ex.Func)
			b.WriteString("\n\nTest:\n")
			b.WriteString(ex.Test)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Now write the pytest tests:\n")
	return b.String()
}
