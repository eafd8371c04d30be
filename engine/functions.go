package engine

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/spatial-search/geo"
	"github.com/viant/spatial-search/vector"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterFunctions registers vec_l2 and great_circle_km with the driver so
// they are available on connections opened after this call. It is safe to
// call more than once.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		if err := sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2Impl); err != nil {
			registerErr = fmt.Errorf("engine: register vec_l2: %w", err)
			return
		}
		if err := sqlite.RegisterDeterministicScalarFunction("great_circle_km", 4, greatCircleImpl); err != nil {
			registerErr = fmt.Errorf("engine: register great_circle_km: %w", err)
		}
	})
	return registerErr
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec_l2: unsupported argument type %T; want BLOB", arg)
	}
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_l2: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	d, err := vector.L2Distance(a, b)
	if err != nil {
		return nil, fmt.Errorf("vec_l2: %w", err)
	}
	return d, nil
}

func greatCircleImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("great_circle_km: expected 4 arguments, got %d", len(args))
	}
	var deg [4]float64
	for i, arg := range args {
		if arg == nil {
			return nil, nil
		}
		v, err := asFloat(arg)
		if err != nil {
			return nil, fmt.Errorf("great_circle_km: argument %d: %w", i+1, err)
		}
		deg[i] = v
	}
	return geo.Haversine(geo.DegToRad(deg[0]), geo.DegToRad(deg[1]), geo.DegToRad(deg[2]), geo.DegToRad(deg[3])), nil
}

func asFloat(v driver.Value) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(val, 64)
	case []byte:
		return strconv.ParseFloat(string(val), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
