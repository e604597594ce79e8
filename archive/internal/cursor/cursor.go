package cursor

import (
	"errors"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotContainer = errors.New("cursor: node is not a sequence or mapping")
	ErrEmptyStack   = errors.New("cursor: no open container")
)

type frame struct {
	node *yaml.Node
	seg  string // path segment of the child last handed out
	pos  int
}

// Cursor walks containers of a YAML tree.
type Cursor struct {
	stack []frame
}

// New returns a cursor positioned on the first child of root.
func New(root *yaml.Node) (*Cursor, error) {
	c := &Cursor{}
	if err := c.Push(root); err != nil {
		return nil, err
	}
	return c, nil
}

// Push opens n, which must be a sequence or mapping.
func (c *Cursor) Push(n *yaml.Node) error {
	if n == nil || (n.Kind != yaml.SequenceNode && n.Kind != yaml.MappingNode) {
		return ErrNotContainer
	}
	c.stack = append(c.stack, frame{node: n})
	return nil
}

// Pop closes the innermost container and returns how many of its children
// were never read.
func (c *Cursor) Pop() (int, error) {
	if len(c.stack) == 0 {
		return 0, ErrEmptyStack
	}
	left := c.Remaining()
	c.stack = c.stack[:len(c.stack)-1]
	return left, nil
}

// Depth returns the number of open containers.
func (c *Cursor) Depth() int {
	return len(c.stack)
}

// Container returns the innermost open container.
func (c *Cursor) Container() *yaml.Node {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1].node
}

// Remaining returns the number of unread children of the innermost container.
// A mapping entry counts once.
func (c *Cursor) Remaining() int {
	if len(c.stack) == 0 {
		return 0
	}
	f := c.stack[len(c.stack)-1]
	left := len(f.node.Content) - f.pos
	if f.node.Kind == yaml.MappingNode {
		left /= 2
	}
	return left
}

// Peek returns the next child without consuming it. For sequences key is nil.
func (c *Cursor) Peek() (key, value *yaml.Node, ok bool) {
	if c.Remaining() == 0 {
		return nil, nil, false
	}
	f := c.stack[len(c.stack)-1]
	if f.node.Kind == yaml.MappingNode {
		return f.node.Content[f.pos], f.node.Content[f.pos+1], true
	}
	return nil, f.node.Content[f.pos], true
}

// Next consumes the next child.
func (c *Cursor) Next() (key, value *yaml.Node, ok bool) {
	key, value, ok = c.Peek()
	if !ok {
		return nil, nil, false
	}
	f := &c.stack[len(c.stack)-1]
	if key != nil {
		f.seg = key.Value
		f.pos += 2
	} else {
		f.seg = "[" + strconv.Itoa(f.pos) + "]"
		f.pos++
	}
	return key, value, true
}

// Path returns the path of the child last handed out, from the root down.
func (c *Cursor) Path() []string {
	path := make([]string, 0, len(c.stack))
	for _, f := range c.stack {
		if f.seg != "" {
			path = append(path, f.seg)
		}
	}
	return path
}

// Line returns the source line of the innermost container.
func (c *Cursor) Line() int {
	if n := c.Container(); n != nil {
		return n.Line
	}
	return 0
}

// Deref follows alias nodes to their target.
func Deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
