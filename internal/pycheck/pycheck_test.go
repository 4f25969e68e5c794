package pycheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValidSource(t *testing.T) {
	valid := []string{
		"",
		"x = 1\n",
		"def add(a, b):\n    return a + b\n",
		"import pytest\n\n\ndef test_add():\n    assert add(3, 5) == 8\n",
		"class Foo:\n    def bar(self):\n        return [i for i in range(10)]\n",
	}
	for _, src := range valid {
		se, err := Check(context.Background(), src)
		require.NoError(t, err)
		assert.Nil(t, se, "source should parse: %q", src)
	}
}

func TestCheckInvalidSource(t *testing.T) {
	invalid := []string{
		"def broken(:\n    pass\n",
		"def f(x)\n    return x\n",
		"if True\n    pass\n",
		"x = (1, 2\n",
	}
	for _, src := range invalid {
		se, err := Check(context.Background(), src)
		require.NoError(t, err)
		require.NotNil(t, se, "source should not parse: %q", src)
		assert.GreaterOrEqual(t, se.Line, 1)
		assert.GreaterOrEqual(t, se.Column, 1)
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	se, err := Check(context.Background(), "def broken(:\n    pass\n")
	require.NoError(t, err)
	require.NotNil(t, se)

	msg := se.Error()
	assert.Contains(t, msg, "syntax error at line")
	assert.LessOrEqual(t, len(se.Snippet), 40)
}
