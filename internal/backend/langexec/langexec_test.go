package langexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTopLevelArithmetic(t *testing.T) {
	v, err := Run(context.Background(), "return 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestRunFibonacciRecursion(t *testing.T) {
	code := "function main() { function fib(n) { return n <= 1 ? n : fib(n-1) + fib(n-2); } return fib(10); }"
	v, err := Run(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(55), v)
}

func TestRunRecursiveCountdown(t *testing.T) {
	code := `
	function main() {
		return countdown(5);
	}
	function countdown(n) {
		return n <= 0 ? 0 : 1 + countdown(n - 1);
	}
	`
	v, err := Run(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestRunWhileFalseBodyNeverExecutes(t *testing.T) {
	code := `
	function main() {
		while (false) {
			return 99;
		}
		return 1;
	}
	`
	v, err := Run(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRunTimeoutOnInfiniteLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, "while (true) { }")
	assert.Equal(t, ErrTimeout, err)
}

func TestRunUndefinedIdentifierErrors(t *testing.T) {
	_, err := Run(context.Background(), "return undefinedVar;")
	assert.Error(t, err)
}

func TestRunDivisionByZeroErrors(t *testing.T) {
	_, err := Run(context.Background(), "return 1 / 0;")
	assert.Error(t, err)
}

func TestParseRejectsUnterminatedBlock(t *testing.T) {
	_, err := Parse("function main() { return 1;")
	assert.Error(t, err)
}

func TestParseAcceptsNestedIfElse(t *testing.T) {
	code := `
	function main() {
		if (1 > 0) {
			return 10;
		} else {
			return 20;
		}
	}
	`
	v, err := Run(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)
}

func TestRunLogicalOperators(t *testing.T) {
	v, err := Run(context.Background(), "return (1 < 2 && 3 > 1) || false;")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
