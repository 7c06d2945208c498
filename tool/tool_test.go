package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/allocmesh/plant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMachines(t *testing.T) plant.Set {
	t.Helper()
	s, err := plant.NewSet(
		plant.Machine{Name: "Tool_2", Capacity: 800, VariableCost: 3, FixedCost: 3000},
		plant.Machine{Name: "Tool_6", Capacity: 1600, VariableCost: 3, FixedCost: 3000},
		plant.Machine{Name: "Tool_13", Capacity: 2000, VariableCost: 5, FixedCost: 4500},
		plant.Machine{Name: "Tool_25", Capacity: 600, VariableCost: 7, FixedCost: 2500},
	)
	require.NoError(t, err)
	return s
}

func TestFunctionTool_ValidatesArguments(t *testing.T) {
	ft := NewFunctionTool("echo", "echo input", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})

	_, err := ft.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)

	out, err := ft.Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestFunctionTool_WrapsExecutionErrors(t *testing.T) {
	ft := NewFunctionTool("boom", "always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("kaput")
		})

	_, err := ft.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "kaput")
}

func TestCostCalculator(t *testing.T) {
	calc := NewCostCalculator(testMachines(t), 3000)

	out, err := calc.Call(context.Background(), map[string]any{
		"allocation": map[string]any{"Tool_6": float64(1600), "Tool_13": float64(1400)},
	})
	require.NoError(t, err)
	result, ok := out.(CostResult)
	require.True(t, ok)
	assert.Equal(t, 19300.0, result.TotalCost)
	assert.Equal(t, 11800.0, result.TotalVariableCost)
	assert.Equal(t, 7500.0, result.TotalFixedCost)
}

func TestCostCalculator_RejectsInvalidAllocation(t *testing.T) {
	calc := NewCostCalculator(testMachines(t), 3000)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"over capacity", map[string]any{
			"allocation": map[string]any{"Tool_6": float64(3000)},
		}},
		{"fractional units", map[string]any{
			"allocation": map[string]any{"Tool_6": 1599.5, "Tool_13": 1400.5},
		}},
		{"wrong shape", map[string]any{
			"allocation": "Tool_6=1600",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Call(context.Background(), tt.args)
			assert.Error(t, err)
		})
	}
}

func TestAllocationOracle(t *testing.T) {
	oracle := NewAllocationOracle(testMachines(t), 3000)

	out, err := oracle.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	result, ok := out.(OracleResult)
	require.True(t, ok)
	assert.Equal(t, 19300.0, result.OptimalCost)
	assert.Equal(t, 1600, result.OptimalAllocation["Tool_6"])
	assert.Equal(t, 1400, result.OptimalAllocation["Tool_13"])
}

func TestDefinition(t *testing.T) {
	calc := NewCostCalculator(testMachines(t), 3000)
	def := Definition(calc)
	assert.Equal(t, CostCalculatorName, def.Name)
	assert.NotEmpty(t, def.Description)
	assert.Equal(t, "object", def.Parameters["type"])
}
