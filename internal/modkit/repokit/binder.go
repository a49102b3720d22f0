package repokit

// Binder binds a repo to a Queryer, usually a pool or an open tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a func to Binder
type BindFunc[T any] func(Queryer) T

// Bind implements Binder
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind panics on a nil Queryer, a wiring bug
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return b.Bind(q)
}
