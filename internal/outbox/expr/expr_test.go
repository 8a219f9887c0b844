package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/outboxrelay/internal/outbox/expr"
)

type order struct {
	OrderID string
}

func TestExpr_Eval_ArgsIndex(t *testing.T) {
	e, err := expr.Parse("args[0]")
	require.NoError(t, err)

	val, err := e.Eval(expr.Call{Args: []any{"order-123"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "order-123", val)
}

func TestExpr_Eval_ArgsIndexField(t *testing.T) {
	e, err := expr.Parse("args[0].OrderID")
	require.NoError(t, err)

	val, err := e.Eval(expr.Call{Args: []any{order{OrderID: "order-456"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "order-456", val)
}

func TestExpr_Eval_ArgsIndexFieldOnPointer(t *testing.T) {
	e, err := expr.Parse("args[0].OrderID")
	require.NoError(t, err)

	val, err := e.Eval(expr.Call{Args: []any{&order{OrderID: "order-789"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "order-789", val)
}

func TestExpr_Eval_Result(t *testing.T) {
	e, err := expr.Parse("result.OrderID")
	require.NoError(t, err)

	val, err := e.Eval(expr.Call{Result: order{OrderID: "order-999"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "order-999", val)
}

func TestExpr_Eval_BareName(t *testing.T) {
	e, err := expr.Parse("orderID")
	require.NoError(t, err)

	val, err := e.Eval(expr.Call{Args: []any{"order-1"}}, map[string]int{"orderID": 0})
	require.NoError(t, err)
	assert.Equal(t, "order-1", val)
}

func TestExpr_Eval_UnknownNameFails(t *testing.T) {
	e, err := expr.Parse("missing")
	require.NoError(t, err)

	_, err = e.Eval(expr.Call{Args: []any{"x"}}, map[string]int{})
	require.Error(t, err)
}

func TestExpr_Eval_ArgsIndexOutOfRangeFails(t *testing.T) {
	e, err := expr.Parse("args[3]")
	require.NoError(t, err)

	_, err = e.Eval(expr.Call{Args: []any{"x"}}, nil)
	require.Error(t, err)
}

func TestParse_RejectsEmptyExpression(t *testing.T) {
	_, err := expr.Parse("   ")
	require.Error(t, err)
}
