package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildContainsSource(t *testing.T) {
	src := "def multiply(a, b):\n    return a * b\n"
	p := Build(src, false, 0)

	assert.Contains(t, p, src)
	assert.Contains(t, p, "expert Python developer")
	assert.True(t, strings.HasSuffix(p, "Now write the pytest tests:\n"))
	assert.NotContains(t, p, "Examples:")
}

func TestBuildWithExamples(t *testing.T) {
	p := Build("def f():\n    pass\n", true, 1)

	assert.Contains(t, p, "Examples:")
	assert.Contains(t, p, "def add(a, b):")
	assert.Contains(t, p, "test_add_two_positive_numbers")
}

func TestBuildClampsExampleCount(t *testing.T) {
	// asking for more examples than exist must not panic or duplicate
	p := Build("def f():\n    pass\n", true, 100)
	assert.Equal(t, 1, strings.Count(p, "test_add_two_positive_numbers"))
}

func TestBuildNegativeExampleCount(t *testing.T) {
	var p string
	assert.NotPanics(t, func() { p = Build("def f():\n    pass\n", true, -1) })
	assert.NotContains(t, p, "test_add_two_positive_numbers")
	assert.Contains(t, p, "def f():")
}
