package interp

import (
	"fmt"
	"math"
)

func multiply(args []interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("multiply requires at least 2 arguments, got %d", len(args))
	}

	product := 1.0
	integral := true
	for i, arg := range args {
		f, isInt, err := toNumber(arg)
		if err != nil {
			return nil, fmt.Errorf("multiply: argument %d: %w", i+1, err)
		}
		integral = integral && isInt
		product *= f
	}

	if integral {
		return int(product), nil
	}
	return product, nil
}

func floorDiv(args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("floor_div requires exactly 2 arguments, got %d", len(args))
	}

	a, _, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("floor_div: argument 1: %w", err)
	}
	b, _, err := toNumber(args[1])
	if err != nil {
		return nil, fmt.Errorf("floor_div: argument 2: %w", err)
	}
	if b == 0 {
		return nil, fmt.Errorf("floor_div: division by zero")
	}

	return int(math.Floor(a / b)), nil
}

func toNumber(v interface{}) (value float64, isInt bool, err error) {
	switch n := v.(type) {
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float64:
		return n, false, nil
	case float32:
		return float64(n), false, nil
	default:
		return 0, false, fmt.Errorf("value %v is not numeric", v)
	}
}
