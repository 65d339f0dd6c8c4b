package condition

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		message string
		want    bool
	}{
		{"equality match", "message == 'hello'", "hello", true},
		{"equality miss", "message == 'hello'", "goodbye", false},
		{"double quotes", `message == "hello"`, "hello", true},
		{"inequality", "message != 'hello'", "goodbye", true},
		{"substring", "'ell' in message", "hello", true},
		{"not in substring", "'xyz' not in message", "hello", true},
		{"list membership", "message in ['yes', 'y']", "y", true},
		{"list miss", "message in ['yes', 'y']", "no", false},
		{"empty list", "message in []", "no", false},
		{"trailing comma", "message in ['a', 'b',]", "b", true},
		{"regex prefix", "message =~ 'hel+'", "hello world", true},
		{"regex anchored", "message =~ 'world'", "hello world", false},
		{"regex negated", "message !~ '[0-9]+'", "abc", true},
		{"regex alternation anchored", "message =~ 'a|b'", "xb", false},
		{"length", "message.length == 5", "hello", true},
		{"length unicode", "message.length == 2", "éé", true},
		{"length compare", "message.length > 3", "hi", false},
		{"is_empty", "message.is_empty", "", true},
		{"as_lower", "message.as_lower == 'hello'", "HeLLo", true},
		{"as_upper", "message.as_upper == 'HELLO'", "hello", true},
		{"chained attributes", "message.as_upper.length == 5", "hello", true},
		{"and", "message == 'a' and message != 'b'", "a", true},
		{"and symbols", "message == 'a' && message == 'b'", "a", false},
		{"or", "message == 'a' or message == 'b'", "b", true},
		{"or symbols", "message == 'a' || message == 'b'", "c", false},
		{"not keyword", "not message == 'a'", "b", true},
		{"not bang", "!(message == 'a')", "a", false},
		{"precedence", "message == 'x' or message == 'a' and false", "a", false},
		{"parentheses", "(message == 'x' or message == 'a') and true", "a", true},
		{"bare message truthy", "message", "anything", true},
		{"bare message empty", "message", "", false},
		{"number literal", "1.5 < 2", "", true},
		{"unary minus", "-1 < 0", "", true},
		{"zero is falsy", "0", "", false},
		{"null is falsy", "null", "", false},
		{"null equality", "null == null", "", true},
		{"string ordering", "message < 'b'", "a", true},
		{"mixed equality is false", "message == 1", "1", false},
		{"escaped quote", `message == 'it\'s'`, "it's", true},
		{"non-empty list truthy", "['a']", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_InvalidExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"dangling operator", "message =="},
		{"unbalanced paren", "(message == 'a'"},
		{"unterminated string", "message == 'a"},
		{"unknown attribute", "message.size"},
		{"bad regex", "message =~ '('"},
		{"non-string regex literal", "message =~ 5"},
		{"trailing tokens", "message == 'a' 'b'"},
		{"chained comparison", "1 < 2 < 3"},
		{"unexpected character", "message # 'a'"},
		{"unclosed list", "message in ['a'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidExpression)
			assert.NotErrorIs(t, err, domain.ErrEvaluation)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.expr, cerr.Expression)
		})
	}
}

func TestEvaluate_EvaluationError(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"undefined identifier", "msg == 'hello'"},
		{"ordering mismatch", "message < 3"},
		{"length of number", "(1).length"},
		{"negate string", "-message"},
		{"in non-container", "'a' in 5"},
		{"number in string", "1 in message"},
		{"regex on number", "5 =~ 'a'"},
		{"null ordering", "null < 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEvaluation)
		})
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	// The right-hand side would fail with an undefined identifier.
	got, err := Evaluate("message == 'a' or nope", "a")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Evaluate("message == 'b' and nope", "a")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluate_Idempotent(t *testing.T) {
	exprs := []string{"message == 'hello'", "message =~ 'h.*'", "message.length > 2"}
	for _, expr := range exprs {
		first, err := Evaluate(expr, "hello")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Evaluate(expr, "hello")
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestError_Message(t *testing.T) {
	_, err := Evaluate("message.size", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expression")
	assert.Contains(t, err.Error(), `unknown attribute "size"`)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 8, cerr.Pos)
}

func TestProgram_Reuse(t *testing.T) {
	p, err := Compile("message == 'hello'")
	require.NoError(t, err)
	assert.Equal(t, "message == 'hello'", p.String())

	yes, err := p.Eval("hello")
	require.NoError(t, err)
	no, err := p.Eval("goodbye")
	require.NoError(t, err)

	assert.True(t, yes)
	assert.False(t, no)
}

func TestEvaluator_Cache(t *testing.T) {
	e := NewEvaluator()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.Evaluate(ctx, "message == 'hello'", "hello")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, e.Len())

	_, err := e.Evaluate(ctx, "message ==", "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidExpression)
	assert.Equal(t, 1, e.Len(), "parse failures are not cached")
}

func TestEvaluator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEvaluator().Evaluate(ctx, "true", "")
	assert.ErrorIs(t, err, context.Canceled)
}
