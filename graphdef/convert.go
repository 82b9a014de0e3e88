package graphdef

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// goToCty converts a node output value into the cty.Value a dependent
// node's argument expressions can reference by role name. Grounded on the
// teacher's typeExprToCtyType (internal/hcl/translate_type.go) primitive
// mapping, narrowed here to values rather than type expressions.
func goToCty(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(t)
	case bool:
		return cty.BoolVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	default:
		return cty.StringVal(fmt.Sprintf("%v", t))
	}
}

// ctyToGo converts an evaluated argument expression's cty.Value into the
// plain Go value a HandlerFunc receives.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("graphdef: value is not known at graph-build time")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("graphdef: unsupported argument type %s", v.Type().FriendlyName())
	}
}
