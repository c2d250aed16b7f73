package util

// DoOnErrOrPanic calls f when the pointed-to error is non-nil or the goroutine
// is panicking. A recovered panic is rethrown after f runs.
//
// It exists for deferred cleanup that must only happen on failure, e.g.
// removing a half-written script file:
//
//	defer DoOnErrOrPanic(&retErr, func() {
//		_ = os.Remove(path)
//	})
//
// err must be a pointer to the named return error: a plain error value would
// be copied when the defer is created, before the function assigns it.
func DoOnErrOrPanic(err *error, f func()) {
	if p := recover(); p != nil {
		f()
		panic(p)
	}
	if *err != nil {
		f()
	}
}
