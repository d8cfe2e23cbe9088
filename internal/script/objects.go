package script

import (
	"strconv"

	"github.com/dop251/goja"
	"github.com/linsmod/webf/internal/dom"
)

// tokenListObject backs element.classList.
type tokenListObject struct {
	r    *Runtime
	list *dom.TokenList
}

func (t *tokenListObject) Get(key string) goja.Value {
	r, list := t.r, t.list
	vm := r.vm
	if i, err := strconv.Atoi(key); err == nil {
		items := list.Items()
		if i >= 0 && i < len(items) {
			return vm.ToValue(items[i])
		}
		return nil
	}
	tokens := func(call goja.FunctionCall) []string {
		out := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			out[i] = a.String()
		}
		return out
	}
	switch key {
	case "length":
		return vm.ToValue(list.Len())
	case "value":
		return vm.ToValue(list.Owner().ClassName())
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(list.Contains(call.Argument(0).String()))
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			items := list.Items()
			i := call.Argument(0).ToInteger()
			if i < 0 || i >= int64(len(items)) {
				return goja.Null()
			}
			return vm.ToValue(items[i])
		})
	case "add":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			r.check(list.Add(tokens(call)...))
			return goja.Undefined()
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			r.check(list.Remove(tokens(call)...))
			return goja.Undefined()
		})
	case "toggle":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			on, err := list.Toggle(call.Argument(0).String())
			r.check(err)
			return vm.ToValue(on)
		})
	}
	return nil
}

func (t *tokenListObject) Set(key string, val goja.Value) bool {
	if key != "value" {
		return false
	}
	t.r.check(t.list.Owner().SetAttribute("class", val.String()))
	return true
}

func (t *tokenListObject) Has(key string) bool {
	return t.Get(key) != nil
}

func (t *tokenListObject) Delete(string) bool { return false }

func (t *tokenListObject) Keys() []string {
	keys := make([]string, t.list.Len())
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// datasetObject backs element.dataset.
type datasetObject struct {
	r *Runtime
	m *dom.StringMap
}

func (d *datasetObject) Get(key string) goja.Value {
	if v, ok := d.m.Get(key); ok {
		return d.r.vm.ToValue(v)
	}
	return nil
}

func (d *datasetObject) Set(key string, val goja.Value) bool {
	d.r.check(d.m.Set(key, val.String()))
	return true
}

func (d *datasetObject) Has(key string) bool {
	_, ok := d.m.Get(key)
	return ok
}

func (d *datasetObject) Delete(key string) bool {
	d.r.check(d.m.Delete(key))
	return true
}

func (d *datasetObject) Keys() []string { return d.m.Keys() }

// styleObject backs element.style. Any other key reads or writes the
// declaration of that name.
type styleObject struct {
	r *Runtime
	s *dom.Style
}

func (s *styleObject) Get(key string) goja.Value {
	r, style := s.r, s.s
	vm := r.vm
	switch key {
	case "cssText":
		return vm.ToValue(style.CSSText())
	case "length":
		return vm.ToValue(style.Len())
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(style.GetPropertyValue(call.Argument(0).String()))
		})
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			r.check(style.SetProperty(call.Argument(0).String(), call.Argument(1).String()))
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			old, err := style.RemoveProperty(call.Argument(0).String())
			r.check(err)
			return vm.ToValue(old)
		})
	}
	return vm.ToValue(style.GetPropertyValue(key))
}

func (s *styleObject) Set(key string, val goja.Value) bool {
	if key == "cssText" {
		s.r.check(s.s.Owner().SetAttribute("style", val.String()))
		return true
	}
	value := ""
	if !goja.IsNull(val) && !goja.IsUndefined(val) {
		value = val.String()
	}
	s.r.check(s.s.SetProperty(key, value))
	return true
}

func (s *styleObject) Has(key string) bool {
	return s.s.GetPropertyValue(key) != ""
}

func (s *styleObject) Delete(key string) bool {
	_, err := s.s.RemoveProperty(key)
	s.r.check(err)
	return true
}

func (s *styleObject) Keys() []string { return s.s.Properties() }
