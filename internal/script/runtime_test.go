package script

import (
	"context"
	"testing"
	"time"
	"weak"

	"github.com/dop251/goja"
	"github.com/linsmod/webf/internal/dom"
	"github.com/linsmod/webf/internal/host/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T, cfg Config) (*Runtime, *local.Host) {
	t.Helper()
	h := local.New(local.DefaultConfig())
	t.Cleanup(h.Wait)
	rt, err := New(h, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt, h
}

func run(t *testing.T, rt *Runtime, src string) *Result {
	t.Helper()
	result, err := rt.Execute(context.Background(), src)
	require.NoError(t, err)
	return result
}

func TestRuntimeExecution(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{name: "simple return", script: "42", want: int64(42)},
		{name: "console log", script: "console.log('hello'); 'test'", want: "test"},
		{name: "math operations", script: "Math.sqrt(16)", want: int64(4)},
		{name: "string operations", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "undefined", script: "undefined", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(t, rt, tt.script)
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestRuntimeSecurity(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	for _, src := range []string{"require('fs')", "process.exit(1)", "module.exports = {}"} {
		t.Run(src, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), src)
			require.Error(t, err)
			assert.Nil(t, result.Value)
		})
	}
}

func TestRuntimeTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	rt, _ := newRuntime(t, cfg)

	result, err := rt.Execute(context.Background(), `let i = 0; while (true) { i++; }`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Error(t, result.Error)

	// The runtime stays usable after an interrupt.
	assert.Equal(t, int64(2), run(t, rt, "1 + 1").Value)
}

func TestRuntimeConsoleCapture(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		console.log('info message');
		console.warn('warning', 2);
		console.error('error message');
		'done'
	`)
	require.Len(t, result.Console, 3)
	assert.Equal(t, []string{"log", "warn", "error"},
		[]string{result.Console[0].Level, result.Console[1].Level, result.Console[2].Level})
	assert.Equal(t, "warning 2", result.Console[1].Message)
}

func TestDocumentMutations(t *testing.T) {
	rt, h := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const div = document.createElement('div');
		div.setAttribute('id', 'box');
		div.textContent = 'hi';
		document.appendChild(div);
		div.outerHTML
	`)
	assert.Equal(t, `<div id="box">hi</div>`, result.Value)
	assert.Equal(t, `<div id="box">hi</div>`, result.HTML)

	m, ok := h.Mirror(rt.Context().ID())
	require.True(t, ok)
	assert.Equal(t, `<div id="box">hi</div>`, m.Render())
	assert.Zero(t, rt.Context().Scheduler().Pending())
}

func TestWrapperIdentity(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const d = document.createElement('div');
		d.id = 'a';
		d.custom = 7;
		document.appendChild(d);
		const again = document.getElementById('a');
		[d === again, again.custom, d.parentNode === document, document.firstChild === d,
		 d.appendChild === d.appendChild, d.classList === d.classList].join(',')
	`)
	assert.Equal(t, "true,7,true,true,true,true", result.Value)

	div := rt.Document().GetElementByID("a")
	require.NotNil(t, div)
	assert.Equal(t, 1, rt.Context().Heap().Retained(div))
}

func TestWrapperCleanupReleasesNode(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())
	n, err := rt.Document().CreateElement("span")
	require.NoError(t, err)

	heap := rt.Context().Heap()
	obj := rt.wrap(n)
	assert.Same(t, obj, rt.wrap(n))
	assert.Equal(t, 1, heap.Retained(n))

	// Simulate the collector having reclaimed the wrapper.
	rt.wrappers[n] = weak.Pointer[goja.Object]{}
	rt.forget(heap, n)
	assert.Zero(t, heap.Retained(n))
	assert.NotContains(t, rt.wrappers, n)

	// The create record pins the node until it is flushed.
	require.NoError(t, rt.Context().Flush(context.Background()))
	rt.Context().Collect()
	assert.True(t, n.Disposed())
}

func TestDOMExceptionsAreNamed(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{name: "hierarchy", script: "document.appendChild(document)", want: dom.HierarchyRequestError},
		{name: "character", script: "document.createElement('1bad')", want: dom.InvalidCharacterError},
		{name: "selector", script: "document.querySelector('p[')", want: dom.SyntaxError},
		{name: "not a node", script: "document.appendChild({})", want: "TypeError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(t, rt, "try { "+tt.script+"; 'no error' } catch (e) { e.name }")
			assert.Equal(t, tt.want, result.Value)
		})
	}

	_, err := rt.Execute(context.Background(), "document.appendChild(document)")
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, ex.Error(), dom.HierarchyRequestError)
}

func TestElementHelpers(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const d = document.createElement('div');
		d.classList.add('a', 'b');
		d.classList.toggle('a');
		d.dataset.fooBar = 'x';
		d.style.backgroundColor = 'red';
		d.style.setProperty('height', '10px');
		document.appendChild(d);
		[d.className, d.getAttribute('data-foo-bar'), d.style.cssText,
		 d.classList.length, Object.keys(d.dataset).join(','), d.getBoundingClientRect().height].join('|')
	`)
	assert.Equal(t, "b|x|background-color: red; height: 10px|1|fooBar|10", result.Value)
}

func TestInnerHTMLAndQueries(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const main = document.createElement('main');
		document.appendChild(main);
		main.innerHTML = '<p class="x">1</p><p>2</p>';
		const ps = document.querySelectorAll('p');
		[ps.length, document.querySelector('.x').textContent, ps[1].matches('main > p'),
		 main.getElementsByTagName('p').length, document.querySelector('table')].join(',')
	`)
	assert.Equal(t, "2,1,true,2,", result.Value)
}

func TestToBlobPromise(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const d = document.createElement('div');
		d.style.height = '4px';
		document.appendChild(d);
		d.toBlob(2).then(b => b.type + ':' + (b.size > 0))
	`)
	assert.Equal(t, "image/png:true", result.Value)

	_, err := rt.Execute(context.Background(), `document.createElement('div').toBlob()`)
	require.Error(t, err)
	assert.Equal(t, "InternalError", dom.ExceptionName(err))
}

func TestTimersRunBeforeExecuteReturns(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result := run(t, rt, `
		const id = setTimeout(() => document.appendChild(document.createElement('b')), 50);
		setTimeout(() => document.appendChild(document.createElement('p')), 10);
		clearTimeout(id);
		'queued'
	`)
	assert.Equal(t, "queued", result.Value)
	assert.Equal(t, "<p></p>", result.HTML)
}

func TestUnsettledPromise(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	_, err := rt.Execute(context.Background(), "new Promise(() => {})")
	assert.ErrorIs(t, err, ErrUnsettled)
}

func TestResetStartsFreshContext(t *testing.T) {
	rt, h := newRuntime(t, DefaultConfig())
	run(t, rt, "document.appendChild(document.createElement('p'))")
	before := rt.Context().ID()

	require.NoError(t, rt.Reset(context.Background()))
	assert.NotEqual(t, before, rt.Context().ID())
	_, ok := h.Mirror(before)
	assert.False(t, ok)

	assert.Equal(t, "", run(t, rt, "document.firstChild === null ? '' : 'dirty'").Value)

	require.NoError(t, rt.Close(context.Background()))
	_, err := rt.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}
