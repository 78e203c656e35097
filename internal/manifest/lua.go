package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/truenasctl/internal/reconcile/cronjob"
	"github.com/dokzlo13/truenasctl/internal/reconcile/tunable"
)

// parseLua runs a Lua manifest. Scripts declare resources by calling
// cronjob{...} and tunable{...}; env(name, default) reads the environment.
func parseLua(name, source string) (*Manifest, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// No io/os: manifests only declare resources
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("failed to open lua library %q: %w", lib.name, err)
		}
	}

	m := &Manifest{}

	L.SetGlobal("cronjob", L.NewFunction(func(L *lua.LState) int {
		var d cronjob.Desired
		if err := decodeTable(L.CheckTable(1), &d); err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		m.CronJobs = append(m.CronJobs, d)
		return 0
	}))

	L.SetGlobal("tunable", L.NewFunction(func(L *lua.LState) int {
		var d tunable.Desired
		if err := decodeTable(L.CheckTable(1), &d); err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		m.Tunables = append(m.Tunables, d)
		return 0
	}))

	L.SetGlobal("env", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		def := L.OptString(2, "")
		if v := os.Getenv(key); v != "" {
			L.Push(lua.LString(v))
		} else {
			L.Push(lua.LString(def))
		}
		return 1
	}))

	fn, err := L.LoadString(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, err
	}

	return m, nil
}

// decodeTable converts a Lua table into v through its JSON form.
func decodeTable(tbl *lua.LTable, v any) error {
	data, err := json.Marshal(luaToGo(tbl))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// luaToGo converts a Lua value to a Go value. Numbers become strings since
// every numeric-looking manifest field (schedule fields, tunable values) is
// a string on the wire.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		// Check if it's an array or object
		isArray := true
		maxIdx := 0
		val.ForEach(func(k, _ lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				idx := int(num)
				if idx < 1 || float64(idx) != float64(num) {
					isArray = false
				}
				if idx > maxIdx {
					maxIdx = idx
				}
			} else {
				isArray = false
			}
		})

		if isArray && maxIdx > 0 {
			arr := make([]any, maxIdx)
			val.ForEach(func(k, v lua.LValue) {
				if num, ok := k.(lua.LNumber); ok {
					arr[int(num)-1] = luaToGo(v)
				}
			})
			return arr
		}

		obj := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			obj[lua.LVAsString(k)] = luaToGo(v)
		})
		return obj
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}
