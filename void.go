package fibersync

import (
	"github.com/joeycumines/go-fibersync/fiber"
)

type (
	// VoidHandler is the payload-free variant of [Handler], for operations
	// that only report an error.
	VoidHandler struct {
		h *Handler[struct{}]
	}

	// VoidResult is the payload-free variant of [Result].
	VoidResult struct {
		r *Result[struct{}]
	}
)

// NewVoidHandler is the payload-free variant of [NewHandler].
func NewVoidHandler(s fiber.Scheduler, opts ...HandlerOption) *VoidHandler {
	return &VoidHandler{h: NewHandler[struct{}](s, opts...)}
}

// NewVoidResult is the payload-free variant of [NewResult].
func NewVoidResult(h *VoidHandler) *VoidResult {
	return &VoidResult{r: NewResult(h.h)}
}

// Resolve completes the operation successfully.
func (x *VoidHandler) Resolve() { x.h.Complete(nil, struct{}{}) }

// Complete delivers the outcome of the operation. See [Handler.Complete].
func (x *VoidHandler) Complete(err error) { x.h.Complete(err, struct{}{}) }

// Callback returns Complete.
func (x *VoidHandler) Callback() func(err error) { return x.Complete }

// Get waits for the operation to complete. See [Result.Get].
func (x *VoidResult) Get() error {
	_, err := x.r.Get()
	return err
}

// Await issues an asynchronous operation, then waits for it to complete,
// from the calling fiber. The issue function must arrange for the handler
// to be invoked exactly once. It may do so synchronously.
func Await[T any](s fiber.Scheduler, issue func(h *Handler[T]), opts ...HandlerOption) (T, error) {
	h := NewHandler[T](s, opts...)
	r := NewResult(h)
	issue(h)
	return r.Get()
}

// AwaitVoid is the payload-free variant of [Await].
func AwaitVoid(s fiber.Scheduler, issue func(h *VoidHandler), opts ...HandlerOption) error {
	h := NewVoidHandler(s, opts...)
	r := NewVoidResult(h)
	issue(h)
	return r.Get()
}
