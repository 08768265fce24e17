package core

// Rendering is the full rendered text of a response, emitted instead of a
// diff when diffing is disabled.
type Rendering struct {
	RequestURL string
	URL        string
	Text       string
}

type (
	OnChangeHandler func(change *Change)
	OnRenderHandler func(rendering *Rendering)
)

func MergeOnChangeHandlers(handlers ...OnChangeHandler) OnChangeHandler {
	return func(change *Change) {
		for _, handler := range handlers {
			handler(change)
		}
	}
}

func MergeOnRenderHandlers(handlers ...OnRenderHandler) OnRenderHandler {
	return func(rendering *Rendering) {
		for _, handler := range handlers {
			handler(rendering)
		}
	}
}
