package native

import "fmt"

// Method is the closed enumeration of binding methods a host answers.
type Method uint8

const (
	MethodInvalid Method = iota
	GetBoundingClientRect
	Click
	Scroll
	ScrollBy
	QuerySelector
	QuerySelectorAll
	Matches
	GetElementsByClassName
	GetElementsByTagName

	methodCount
)

var methodNames = [...]string{
	MethodInvalid:          "invalid",
	GetBoundingClientRect:  "getBoundingClientRect",
	Click:                  "click",
	Scroll:                 "scroll",
	ScrollBy:               "scrollBy",
	QuerySelector:          "querySelector",
	QuerySelectorAll:       "querySelectorAll",
	Matches:                "matches",
	GetElementsByClassName: "getElementsByClassName",
	GetElementsByTagName:   "getElementsByTagName",
}

// String returns the DOM method name.
func (m Method) String() string {
	if m < methodCount {
		return methodNames[m]
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

// ParseMethod resolves a DOM method name.
func ParseMethod(name string) (Method, error) {
	for m := GetBoundingClientRect; m < methodCount; m++ {
		if methodNames[m] == name {
			return m, nil
		}
	}
	return MethodInvalid, fmt.Errorf("unknown binding method %q", name)
}

// Rect is the result of GetBoundingClientRect.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Top() float64    { return r.Y }
func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }
