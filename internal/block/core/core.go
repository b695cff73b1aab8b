// Package core holds the built-in blocks every server ships with.
package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
)

// RegisterAll installs every built-in block into reg.
func RegisterAll(reg *block.Registry) {
	reg.Register(NewConstant())
	reg.Register(NewJoin())
	reg.Register(NewSum())
	reg.Register(NewOutput())
	reg.Register(NewFail())
	reg.Register(NewDelay())
}

// -----------------------------------------------------------------------
// constant
// -----------------------------------------------------------------------

// Constant emits data.value on "out".
type Constant struct{}

func NewConstant() *Constant { return &Constant{} }

func (c *Constant) Name() string { return "constant" }

func (c *Constant) Validate(data map[string]interface{}) error {
	if _, ok := data["value"]; !ok {
		return fmt.Errorf("constant: data.value is required")
	}
	return nil
}

func (c *Constant) Execute(_ context.Context, data map[string]interface{}, _ block.Inputs, _ *block.ExecContext) (block.Outputs, error) {
	return block.Outputs{"out": data["value"]}, nil
}

// -----------------------------------------------------------------------
// join
// -----------------------------------------------------------------------

// Join concatenates every value connected to "in" using data.separator.
// An empty (toxic) input is reported through the "error" output.
type Join struct{}

func NewJoin() *Join { return &Join{} }

func (j *Join) Name() string { return "join" }

func (j *Join) Validate(data map[string]interface{}) error {
	if sep, ok := data["separator"]; ok {
		if _, isStr := sep.(string); !isStr {
			return fmt.Errorf("join: data.separator must be a string, got %T", sep)
		}
	}
	return nil
}

func (j *Join) Execute(_ context.Context, data map[string]interface{}, in block.Inputs, _ *block.ExecContext) (block.Outputs, error) {
	sep, _ := data["separator"].(string)
	parts := make([]string, 0, len(in["in"]))
	for i, v := range in["in"] {
		if v == nil {
			return block.Outputs{"error": fmt.Sprintf("join: input in[%d] is empty", i)}, nil
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return block.Outputs{"out": strings.Join(parts, sep)}, nil
}

// -----------------------------------------------------------------------
// sum
// -----------------------------------------------------------------------

// Sum adds every numeric value connected to "in" and data.offset.
type Sum struct{}

func NewSum() *Sum { return &Sum{} }

func (s *Sum) Name() string { return "sum" }

func (s *Sum) Validate(data map[string]interface{}) error {
	if off, ok := data["offset"]; ok {
		if _, isNum := toFloat64(off); !isNum {
			return fmt.Errorf("sum: data.offset must be numeric, got %T", off)
		}
	}
	return nil
}

func (s *Sum) Execute(_ context.Context, data map[string]interface{}, in block.Inputs, _ *block.ExecContext) (block.Outputs, error) {
	total, _ := toFloat64(data["offset"])
	for i, v := range in["in"] {
		f, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("sum: input in[%d] value %v is not numeric", i, v)
		}
		total += f
	}
	total = math.Round(total*100) / 100 // round to 2 dp
	return block.Outputs{"out": total}, nil
}

// -----------------------------------------------------------------------
// output
// -----------------------------------------------------------------------

// Output is the job's result sink: it stores its inputs as the job artifacts.
// A single value on "in" is stored as-is; anything else is stored per socket.
type Output struct{}

func NewOutput() *Output { return &Output{} }

func (o *Output) Name() string { return "output" }

func (o *Output) Validate(map[string]interface{}) error { return nil }

func (o *Output) Execute(_ context.Context, _ map[string]interface{}, in block.Inputs, ec *block.ExecContext) (block.Outputs, error) {
	var result interface{}
	if vs, ok := in["in"]; ok && len(in) == 1 && len(vs) == 1 {
		result = vs[0]
	} else {
		m := make(map[string]interface{}, len(in))
		for k, vs := range in {
			m[k] = vs
		}
		result = m
	}
	ec.SetArtifacts(result)
	return block.Outputs{"out": result}, nil
}

// -----------------------------------------------------------------------
// fail
// -----------------------------------------------------------------------

// Fail always fails. With data.mode "output" the failure is embedded in the
// "error" output instead of being returned.
type Fail struct{}

func NewFail() *Fail { return &Fail{} }

func (f *Fail) Name() string { return "fail" }

func (f *Fail) Validate(data map[string]interface{}) error {
	switch mode, _ := data["mode"].(string); mode {
	case "", "return", "output":
		return nil
	default:
		return fmt.Errorf("fail: data.mode must be 'return' or 'output', got %q", mode)
	}
}

func (f *Fail) Execute(_ context.Context, data map[string]interface{}, _ block.Inputs, _ *block.ExecContext) (block.Outputs, error) {
	msg, _ := data["message"].(string)
	if msg == "" {
		msg = "fail block triggered"
	}
	if mode, _ := data["mode"].(string); mode == "output" {
		return block.Outputs{"error": msg}, nil
	}
	return nil, fmt.Errorf("%s", msg)
}

// -----------------------------------------------------------------------
// delay
// -----------------------------------------------------------------------

// Delay waits data.ms milliseconds, then forwards the first "in" value to "out".
type Delay struct{}

func NewDelay() *Delay { return &Delay{} }

func (d *Delay) Name() string { return "delay" }

func (d *Delay) Validate(data map[string]interface{}) error {
	ms, ok := toFloat64(data["ms"])
	if !ok || ms < 0 {
		return fmt.Errorf("delay: data.ms must be a non-negative number")
	}
	return nil
}

func (d *Delay) Execute(ctx context.Context, data map[string]interface{}, in block.Inputs, _ *block.ExecContext) (block.Outputs, error) {
	ms, _ := toFloat64(data["ms"])
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return block.Outputs{"out": in.First("in")}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("delay: %w", ctx.Err())
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
