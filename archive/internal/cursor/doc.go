// Package cursor walks a parsed YAML node tree in document order.
//
// The cursor holds a stack of open containers. Next hands out the children
// of the innermost container one at a time; Push descends into a child and
// Pop returns to the parent. The path of the value being read is tracked so
// errors can point at it.
package cursor
