package script

import (
	"github.com/dop251/goja"
	"github.com/linsmod/webf/internal/blob"
	"github.com/linsmod/webf/internal/dom"
)

type function = func(goja.FunctionCall) goja.Value

// nodeMethod returns the implementation of a node method, or nil when n
// has no method called key.
func (r *Runtime) nodeMethod(n *dom.Node, key string) function {
	vm := r.vm
	switch key {
	case "appendChild":
		return func(call goja.FunctionCall) goja.Value {
			child := r.unwrap(call.Argument(0), false)
			r.check(n.AppendChild(child))
			return call.Argument(0)
		}
	case "insertBefore":
		return func(call goja.FunctionCall) goja.Value {
			child := r.unwrap(call.Argument(0), false)
			r.check(n.InsertBefore(child, r.unwrap(call.Argument(1), true)))
			return call.Argument(0)
		}
	case "removeChild":
		return func(call goja.FunctionCall) goja.Value {
			r.check(n.RemoveChild(r.unwrap(call.Argument(0), false)))
			return call.Argument(0)
		}
	case "replaceChild":
		return func(call goja.FunctionCall) goja.Value {
			child := r.unwrap(call.Argument(0), false)
			r.check(n.ReplaceChild(child, r.unwrap(call.Argument(1), false)))
			return call.Argument(1)
		}
	case "remove":
		return func(goja.FunctionCall) goja.Value {
			r.check(n.Remove())
			return goja.Undefined()
		}
	case "cloneNode":
		return func(call goja.FunctionCall) goja.Value {
			clone, err := n.CloneNode(call.Argument(0).ToBoolean())
			r.check(err)
			return r.wrap(clone)
		}
	case "contains":
		return func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(n.Contains(r.unwrap(call.Argument(0), true)))
		}
	case "hasChildNodes":
		return func(goja.FunctionCall) goja.Value {
			return vm.ToValue(n.FirstChild() != nil)
		}
	case "querySelector":
		return func(call goja.FunctionCall) goja.Value {
			found, err := n.QuerySelector(r.exec, call.Argument(0).String())
			r.check(err)
			return r.wrap(found)
		}
	case "querySelectorAll":
		return func(call goja.FunctionCall) goja.Value {
			found, err := n.QuerySelectorAll(r.exec, call.Argument(0).String())
			r.check(err)
			return r.wrapAll(found)
		}
	case "getElementsByClassName":
		return func(call goja.FunctionCall) goja.Value {
			found, err := n.GetElementsByClassName(r.exec, call.Argument(0).String())
			r.check(err)
			return r.wrapAll(found)
		}
	case "getElementsByTagName":
		return func(call goja.FunctionCall) goja.Value {
			found, err := n.GetElementsByTagName(r.exec, call.Argument(0).String())
			r.check(err)
			return r.wrapAll(found)
		}
	}

	switch n.Type() {
	case dom.DocumentNode:
		return r.documentMethod(key)
	case dom.ElementNode:
		return r.elementMethod(n, key)
	}
	return nil
}

func (r *Runtime) documentMethod(key string) function {
	doc := r.doc
	created := func(n *dom.Node, err error) goja.Value {
		r.check(err)
		return r.wrap(n)
	}
	switch key {
	case "createElement":
		return func(call goja.FunctionCall) goja.Value {
			return created(doc.CreateElement(call.Argument(0).String()))
		}
	case "createElementNS":
		return func(call goja.FunctionCall) goja.Value {
			ns := call.Argument(0)
			uri := ""
			if !goja.IsNull(ns) && !goja.IsUndefined(ns) {
				uri = ns.String()
			}
			return created(doc.CreateElementNS(uri, call.Argument(1).String()))
		}
	case "createTextNode":
		return func(call goja.FunctionCall) goja.Value {
			return created(doc.CreateTextNode(call.Argument(0).String()))
		}
	case "createComment":
		return func(call goja.FunctionCall) goja.Value {
			return created(doc.CreateComment(call.Argument(0).String()))
		}
	case "createDocumentFragment":
		return func(goja.FunctionCall) goja.Value {
			return created(doc.CreateDocumentFragment())
		}
	case "getElementById":
		return func(call goja.FunctionCall) goja.Value {
			return r.wrap(doc.GetElementByID(call.Argument(0).String()))
		}
	case "flush":
		return func(goja.FunctionCall) goja.Value {
			r.check(r.bctx.Flush(r.exec))
			return goja.Undefined()
		}
	}
	return nil
}

func (r *Runtime) elementMethod(n *dom.Node, key string) function {
	vm := r.vm
	switch key {
	case "getAttribute":
		return func(call goja.FunctionCall) goja.Value {
			v, ok := n.GetAttribute(call.Argument(0).String())
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(v)
		}
	case "setAttribute":
		return func(call goja.FunctionCall) goja.Value {
			r.check(n.SetAttribute(call.Argument(0).String(), call.Argument(1).String()))
			return goja.Undefined()
		}
	case "hasAttribute":
		return func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(n.HasAttribute(call.Argument(0).String()))
		}
	case "removeAttribute":
		return func(call goja.FunctionCall) goja.Value {
			r.check(n.RemoveAttribute(call.Argument(0).String()))
			return goja.Undefined()
		}
	case "matches":
		return func(call goja.FunctionCall) goja.Value {
			ok, err := n.Matches(r.exec, call.Argument(0).String())
			r.check(err)
			return vm.ToValue(ok)
		}
	case "getBoundingClientRect":
		return func(goja.FunctionCall) goja.Value {
			rect, err := n.BoundingClientRect(r.exec)
			r.check(err)
			return vm.ToValue(map[string]interface{}{
				"x": rect.X, "y": rect.Y, "width": rect.Width, "height": rect.Height,
				"top": rect.Y, "left": rect.X, "right": rect.X + rect.Width, "bottom": rect.Y + rect.Height,
			})
		}
	case "click":
		return func(goja.FunctionCall) goja.Value {
			r.check(n.Click(r.exec))
			return goja.Undefined()
		}
	case "scroll", "scrollTo":
		return func(call goja.FunctionCall) goja.Value {
			r.check(n.Scroll(r.exec, call.Argument(0).ToFloat(), call.Argument(1).ToFloat()))
			return goja.Undefined()
		}
	case "scrollBy":
		return func(call goja.FunctionCall) goja.Value {
			r.check(n.ScrollBy(r.exec, call.Argument(0).ToFloat(), call.Argument(1).ToFloat()))
			return goja.Undefined()
		}
	case "toBlob":
		return func(call goja.FunctionCall) goja.Value {
			dpr := 1.0
			if arg := call.Argument(0); !goja.IsUndefined(arg) {
				dpr = arg.ToFloat()
			}
			promise, resolve, reject := vm.NewPromise()
			n.ToBlob(r.exec, dpr).Then(func(b *blob.Blob, err error) {
				if err != nil {
					reject(r.jsError(err))
					return
				}
				resolve(r.blobValue(b))
			})
			return vm.ToValue(promise)
		}
	}
	return nil
}

func (r *Runtime) blobValue(b *blob.Blob) goja.Value {
	obj := r.vm.NewObject()
	_ = obj.Set("size", b.Size())
	_ = obj.Set("type", b.Type())
	_ = obj.Set("arrayBuffer", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.vm.NewArrayBuffer(b.Bytes()))
	})
	_ = obj.Set("text", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(b.Text())
	})
	return obj
}
