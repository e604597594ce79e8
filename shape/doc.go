// Package shape classifies Go types as sequence-like or not.
//
// A sequence-like type supports appending at the end and iteration in
// insertion order; the archive encodes it as a sequence of elements. Every
// other type is encoded as a scalar or a record.
//
// The classifier is closed by default and open by registration: a type is a
// sequence only when an explicit entry or a registered Family claims it.
//
//	c := shape.NewDefault()
//	c.Register(reflect.TypeOf(Ring{}), shape.Sequence{...})
//	c.Exclude(reflect.TypeOf(Vector3{})) // a []float64 archived as a record
package shape
