package script

import (
	"errors"
	"runtime"
	"sort"
	"strings"
	"weak"

	"github.com/dop251/goja"
	"github.com/linsmod/webf/internal/dom"
	"github.com/linsmod/webf/internal/gc"
	"github.com/linsmod/webf/internal/host"
)

// wrap returns the script object for n, creating it on first use. The same
// node always maps to the same object while that object is alive. A live
// wrapper retains its node on the heap; the retain is dropped on the context
// loop once the Go collector reclaims the wrapper.
func (r *Runtime) wrap(n *dom.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if wp, ok := r.wrappers[n]; ok {
		if obj := wp.Value(); obj != nil {
			return obj
		}
	}

	obj := r.vm.NewDynamicObject(&nodeObject{r: r, node: n})
	r.wrappers[n] = weak.Make(obj)

	heap, loop := r.bctx.Heap(), r.bctx.Loop()
	heap.Retain(n)
	runtime.AddCleanup(obj, func(n *dom.Node) {
		loop.Post(func() { r.forget(heap, n) })
	}, n)
	return obj
}

func (r *Runtime) forget(heap *gc.Heap, n *dom.Node) {
	if wp, ok := r.wrappers[n]; ok && wp.Value() == nil {
		delete(r.wrappers, n)
	}
	heap.Release(n)
}

func (r *Runtime) wrapAll(nodes []*dom.Node) goja.Value {
	items := make([]interface{}, len(nodes))
	for i, n := range nodes {
		items[i] = r.wrap(n)
	}
	return r.vm.NewArray(items...)
}

// unwrap returns the node behind v. null and undefined give nil when
// optional is set; anything else that is not a node is a TypeError.
func (r *Runtime) unwrap(v goja.Value, optional bool) *dom.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		if optional {
			return nil
		}
	} else if obj, ok := v.(*goja.Object); ok {
		if no, ok := obj.Export().(*nodeObject); ok {
			return no.node
		}
	}
	panic(r.vm.NewTypeError("parameter is not of type 'Node'"))
}

// jsError converts err into a script error object. DOM exceptions keep
// their DOM name.
func (r *Runtime) jsError(err error) *goja.Object {
	name, msg := "", err.Error()
	var (
		ex   *dom.Exception
		ierr *host.InvocationError
		aerr *host.AsyncHostError
	)
	switch {
	case errors.As(err, &ex):
		name, msg = ex.Name, ex.Message
	case errors.As(err, &ierr):
		if before, after, ok := strings.Cut(ierr.Message, ": "); ok && before == dom.SyntaxError {
			name, msg = dom.SyntaxError, after
		}
	case errors.As(err, &aerr):
		name = "InternalError"
	}
	if name == "" {
		return r.vm.NewGoError(err)
	}
	obj, cerr := r.vm.New(r.vm.Get("Error"), r.vm.ToValue(msg))
	if cerr != nil {
		return r.vm.NewGoError(err)
	}
	_ = obj.Set("name", name)
	return obj
}

func (r *Runtime) throw(err error) {
	panic(r.jsError(err))
}

func (r *Runtime) check(err error) {
	if err != nil {
		r.throw(err)
	}
}

// nodeObject is the dynamic object behind a node wrapper. Unknown
// properties are kept as expandos.
type nodeObject struct {
	r       *Runtime
	node    *dom.Node
	methods map[string]goja.Value
	objects map[string]*goja.Object
	expando map[string]goja.Value
}

// sub returns the classList, dataset or style object of the wrapper.
func (o *nodeObject) sub(key string, create func() goja.DynamicObject) *goja.Object {
	if obj, ok := o.objects[key]; ok {
		return obj
	}
	if o.objects == nil {
		o.objects = make(map[string]*goja.Object)
	}
	obj := o.r.vm.NewDynamicObject(create())
	o.objects[key] = obj
	return obj
}

func (o *nodeObject) Get(key string) goja.Value {
	if v, ok := o.property(key); ok {
		return v
	}
	if fn := o.method(key); fn != nil {
		return fn
	}
	return o.expando[key]
}

func (o *nodeObject) Set(key string, val goja.Value) bool {
	r, n := o.r, o.node
	switch key {
	case "id":
		r.check(n.SetAttribute("id", val.String()))
	case "className":
		r.check(n.SetAttribute("class", val.String()))
	case "textContent":
		r.check(n.SetTextContent(val.String()))
	case "innerHTML":
		r.check(n.SetInnerHTML(val.String()))
	case "data", "nodeValue":
		r.check(n.SetData(val.String()))
	default:
		if _, ok := o.property(key); ok {
			return false
		}
		if o.expando == nil {
			o.expando = make(map[string]goja.Value)
		}
		o.expando[key] = val
	}
	return true
}

func (o *nodeObject) Has(key string) bool {
	if _, ok := o.property(key); ok {
		return true
	}
	if o.method(key) != nil {
		return true
	}
	_, ok := o.expando[key]
	return ok
}

func (o *nodeObject) Delete(key string) bool {
	delete(o.expando, key)
	return true
}

func (o *nodeObject) Keys() []string {
	keys := make([]string, 0, len(o.expando))
	for k := range o.expando {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *nodeObject) property(key string) (goja.Value, bool) {
	r, n := o.r, o.node
	vm := r.vm
	switch key {
	case "nodeType":
		return vm.ToValue(int(n.Type())), true
	case "nodeName":
		return vm.ToValue(n.NodeName()), true
	case "parentNode", "parentElement":
		p := n.ParentNode()
		if key == "parentElement" && p != nil && p.Type() != dom.ElementNode {
			p = nil
		}
		return r.wrap(p), true
	case "firstChild":
		return r.wrap(n.FirstChild()), true
	case "lastChild":
		return r.wrap(n.LastChild()), true
	case "nextSibling":
		return r.wrap(n.NextSibling()), true
	case "previousSibling":
		return r.wrap(n.PreviousSibling()), true
	case "childNodes":
		return r.wrapAll(n.ChildNodes()), true
	case "children":
		var elements []*dom.Node
		for _, c := range n.ChildNodes() {
			if c.Type() == dom.ElementNode {
				elements = append(elements, c)
			}
		}
		return r.wrapAll(elements), true
	case "isConnected":
		return vm.ToValue(n.IsConnected()), true
	case "ownerDocument":
		if n.Type() == dom.DocumentNode {
			return goja.Null(), true
		}
		return r.wrap(r.doc.Node()), true
	case "textContent":
		if n.Type() == dom.DocumentNode {
			return goja.Null(), true
		}
		return vm.ToValue(n.TextContent()), true
	}

	switch n.Type() {
	case dom.TextNode, dom.CommentNode:
		switch key {
		case "data", "nodeValue":
			return vm.ToValue(n.Data()), true
		case "length":
			return vm.ToValue(len([]rune(n.Data()))), true
		}
	case dom.DocumentNode:
		switch key {
		case "documentElement":
			return r.wrap(r.doc.DocumentElement()), true
		case "body", "head":
			return r.wrap(r.childByName(r.doc.DocumentElement(), key)), true
		}
	case dom.ElementNode:
		return o.elementProperty(key)
	}
	return nil, false
}

func (o *nodeObject) elementProperty(key string) (goja.Value, bool) {
	r, n := o.r, o.node
	vm := r.vm
	switch key {
	case "tagName":
		return vm.ToValue(n.TagName()), true
	case "localName":
		return vm.ToValue(n.LocalName()), true
	case "namespaceURI":
		return vm.ToValue(n.NamespaceURI()), true
	case "id":
		return vm.ToValue(n.ID()), true
	case "className":
		return vm.ToValue(n.ClassName()), true
	case "innerHTML":
		return vm.ToValue(n.InnerHTML()), true
	case "outerHTML":
		return vm.ToValue(n.OuterHTML()), true
	case "classList":
		return o.sub(key, func() goja.DynamicObject { return &tokenListObject{r: r, list: n.ClassList()} }), true
	case "dataset":
		return o.sub(key, func() goja.DynamicObject { return &datasetObject{r: r, m: n.Dataset()} }), true
	case "style":
		return o.sub(key, func() goja.DynamicObject { return &styleObject{r: r, s: n.Style()} }), true
	case "attributes":
		attrs := n.Attributes().Items()
		items := make([]interface{}, len(attrs))
		for i, a := range attrs {
			items[i] = map[string]interface{}{"name": a.Name, "value": a.Value}
		}
		return vm.NewArray(items...), true
	case "content":
		content, err := n.Content()
		if err != nil || content == nil {
			return nil, false
		}
		return r.wrap(content), true
	}
	return nil, false
}

func (r *Runtime) childByName(parent *dom.Node, name string) *dom.Node {
	if parent == nil {
		return nil
	}
	for _, c := range parent.ChildNodes() {
		if c.Type() == dom.ElementNode && c.LocalName() == name {
			return c
		}
	}
	return nil
}

// method returns the bound function for key, cached per wrapper so that
// el.appendChild === el.appendChild holds.
func (o *nodeObject) method(key string) goja.Value {
	if fn, ok := o.methods[key]; ok {
		return fn
	}
	impl := o.r.nodeMethod(o.node, key)
	if impl == nil {
		return nil
	}
	if o.methods == nil {
		o.methods = make(map[string]goja.Value)
	}
	fn := o.r.vm.ToValue(impl)
	o.methods[key] = fn
	return fn
}
