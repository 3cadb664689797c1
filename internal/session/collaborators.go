package session

import "context"

// Files is the file access the manager needs. storage.Provider satisfies it.
type Files interface {
	ReadText(path string) (string, error)
	WriteText(path, text string) error
}

// Recorder stores a version of a saved document. history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, identity, content string) bool
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Always approves every confirmation.
var Always = ConfirmFunc(func(context.Context, string) bool { return true })

// Never declines every confirmation.
var Never = ConfirmFunc(func(context.Context, string) bool { return false })

// DestinationPicker chooses where a document is saved. ok is false when the
// user cancelled.
type DestinationPicker interface {
	PickDestination(ctx context.Context, suggested string) (path string, ok bool, err error)
}

// PickerFunc adapts a function to DestinationPicker.
type PickerFunc func(ctx context.Context, suggested string) (string, bool, error)

func (f PickerFunc) PickDestination(ctx context.Context, suggested string) (string, bool, error) {
	return f(ctx, suggested)
}

// FixedDestination always picks path.
func FixedDestination(path string) DestinationPicker {
	return PickerFunc(func(context.Context, string) (string, bool, error) {
		return path, path != "", nil
	})
}
