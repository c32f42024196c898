package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joeydtaylor/luarest/pkg/app"
	lua "github.com/yuin/gopher-lua"
)

const maxTableDepth = 64

func requestTable(L *lua.LState, req *app.Request) *lua.LTable {
	t := L.NewTable()
	if req == nil {
		return t
	}
	t.RawSetString("method", lua.LString(req.Method.String()))
	t.RawSetString("path", lua.LString(req.Path))

	q := L.NewTable()
	for k, vs := range req.Query {
		if len(vs) > 0 {
			q.RawSetString(k, lua.LString(vs[0]))
		}
	}
	t.RawSetString("query", q)

	h := L.NewTable()
	for _, hdr := range req.Header {
		h.RawSetString(strings.ToLower(hdr.Name), lua.LString(hdr.Value))
	}
	t.RawSetString("headers", h)
	t.RawSetString("body", lua.LString(req.Body))
	return t
}

func toInt(v lua.LValue) (int, bool) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, false
	}
	f := float64(n)
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// toGo converts a Lua value into something the JSON codec can encode.
// Tables whose keys are exactly 1..n become arrays, other tables objects.
func toGo(v lua.LValue, depth int) (any, error) {
	if depth > maxTableDepth {
		return nil, fmt.Errorf("table nesting exceeds %d", maxTableDepth)
	}
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case *lua.LTable:
		return tableToGo(v, depth)
	}
	return nil, fmt.Errorf("cannot encode %s", v.Type())
}

func tableToGo(t *lua.LTable, depth int) (any, error) {
	n := 0
	array := true
	t.ForEach(func(k, _ lua.LValue) {
		n++
		if i, ok := toInt(k); !ok || i < 1 {
			array = false
		}
	})
	for i := 1; array && i <= n; i++ {
		if t.RawGetInt(i) == lua.LNil {
			array = false
		}
	}
	if array && n > 0 {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			v, err := toGo(t.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	out := make(map[string]any, n)
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		var key string
		switch k := k.(type) {
		case lua.LString:
			key = string(k)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(k), 'f', -1, 64)
		default:
			err = fmt.Errorf("cannot encode %s table key", k.Type())
			return
		}
		out[key], err = toGo(v, depth+1)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
