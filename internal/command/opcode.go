package command

import "fmt"

// Opcode names the mutation a record carries.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	// OpCreateDocument: target is the new document.
	OpCreateDocument
	// OpCreateElement: args[0] is the local name.
	OpCreateElement
	// OpCreateElementNS: args[0] is the namespace URI, args[1] the qualified name.
	OpCreateElementNS
	// OpCreateSVGElement: args[0] is the local name.
	OpCreateSVGElement
	// OpCreateTextNode: args[0] is the text.
	OpCreateTextNode
	// OpCreateComment: args[0] is the comment data.
	OpCreateComment
	OpCreateDocumentFragment
	// OpInsertAdjacentNode: target is the anchor, args[0] the position, aux the inserted node.
	OpInsertAdjacentNode
	OpRemoveNode
	// OpCloneNode: target is the original, aux the copy.
	OpCloneNode
	// OpSetAttribute: args are name and value.
	OpSetAttribute
	// OpRemoveAttribute: args[0] is the name.
	OpRemoveAttribute
	// OpSetStyle: args are property and value. An empty value removes the property.
	OpSetStyle
	// OpSetData: args[0] is the new character data of a text or comment node.
	OpSetData
	// OpDisposeBindingObject: the target was collected; the host drops its mirror.
	OpDisposeBindingObject

	opCount
)

var opNames = [...]string{
	OpInvalid:                "Invalid",
	OpCreateDocument:         "CreateDocument",
	OpCreateElement:          "CreateElement",
	OpCreateElementNS:        "CreateElementNS",
	OpCreateSVGElement:       "CreateSVGElement",
	OpCreateTextNode:         "CreateTextNode",
	OpCreateComment:          "CreateComment",
	OpCreateDocumentFragment: "CreateDocumentFragment",
	OpInsertAdjacentNode:     "InsertAdjacentNode",
	OpRemoveNode:             "RemoveNode",
	OpCloneNode:              "CloneNode",
	OpSetAttribute:           "SetAttribute",
	OpRemoveAttribute:        "RemoveAttribute",
	OpSetStyle:               "SetStyle",
	OpSetData:                "SetData",
	OpDisposeBindingObject:   "DisposeBindingObject",
}

func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// IsCreate reports whether op introduces a new handle on the host.
func (op Opcode) IsCreate() bool {
	return op >= OpCreateDocument && op <= OpCreateDocumentFragment
}

// ParseOpcode is the inverse of Opcode.String.
func ParseOpcode(s string) (Opcode, error) {
	for op := OpCreateDocument; op < opCount; op++ {
		if opNames[op] == s {
			return op, nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown opcode %q", s)
}

// Insert positions for OpInsertAdjacentNode, as in Element.insertAdjacentElement.
const (
	BeforeBegin = "beforebegin"
	AfterBegin  = "afterbegin"
	BeforeEnd   = "beforeend"
	AfterEnd    = "afterend"
)
