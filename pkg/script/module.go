package script

import (
	"strings"

	"github.com/joeydtaylor/luarest/pkg/route"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	// InitFunction is the global every main.lua must define.
	InitFunction = "luarest_init"

	moduleName  = "luarest"
	serviceType = "luarest.service"
)

var enums = []struct {
	name string
	val  int
}{
	{"HTTP_METHOD_GET", 1},
	{"HTTP_METHOD_POST", 2},
	{"HTTP_METHOD_PUT", 3},
	{"HTTP_METHOD_DELETE", 4},
	{"HTTP_METHOD_OPTION", 5},
	{"HTTP_METHOD_HEAD", 6},

	{"HTTP_RESPONSE_OK", 1},
	{"HTTP_RESPONSE_CREATED", 2},
	{"HTTP_RESPONSE_NO_CONTENT", 3},
	{"HTTP_RESPONSE_NOT_ACCEPTABLE", 4},
	{"HTTP_RESPONSE_NOT_MODIFIED", 5},
	{"HTTP_RESPONSE_SEE_OTHER", 6},
	{"HTTP_RESPONSE_SERVER_ERROR", 7},
	{"HTTP_RESPONSE_TEMPORARY_REDIRECT", 8},

	{"CONTENT_TYPE_PLAIN", 1},
	{"CONTENT_TYPE_HTML", 2},
	{"CONTENT_TYPE_JSON", 3},
}

// service is the userdata handed to luarest_init.
type service struct {
	rt     *Runtime
	table  *route.Table
	sealed bool
}

func openLuarest(L *lua.LState, log *zap.Logger) {
	mod := L.NewTable()
	for _, e := range enums {
		mod.RawSetString(e.name, lua.LNumber(e.val))
	}
	L.SetGlobal(moduleName, mod)

	mt := L.NewTypeMetatable(serviceType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register": serviceRegister,
	}))

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		log.Info("script output", zap.String("msg", strings.Join(parts, "\t")))
		return 0
	}))
}

// service:register(method, path, fn) -> true
func serviceRegister(L *lua.LState) int {
	ud := L.CheckUserData(1)
	svc, ok := ud.Value.(*service)
	if !ok {
		L.ArgError(1, serviceType+" expected")
		return 0
	}
	code := L.CheckInt(2)
	path := L.CheckString(3)
	fn := L.CheckFunction(4)

	if svc.sealed {
		L.RaiseError("register is only available inside %s", InitFunction)
		return 0
	}
	m, ok := route.MethodFromCode(code)
	if !ok {
		L.ArgError(2, "unknown method code")
		return 0
	}
	if !strings.HasPrefix(path, "/") {
		L.ArgError(3, "path must start with /")
		return 0
	}
	svc.table.Register(m, path, svc.rt.add(fn))
	L.Push(lua.LTrue)
	return 1
}

func newService(L *lua.LState, svc *service) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = svc
	L.SetMetatable(ud, L.GetTypeMetatable(serviceType))
	return ud
}
