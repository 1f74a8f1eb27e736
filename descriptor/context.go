package descriptor

import "context"

type contextKey string

func (c contextKey) String() string {
	return "sitecfg/descriptor/" + string(c)
}

const ctxKeyDescriptor = contextKey("descriptorKey")

// ToContext adds the descriptor to the supplied context.
func ToContext(ctx context.Context, d *Descriptor) context.Context {
	return context.WithValue(ctx, ctxKeyDescriptor, d)
}

// FromContext extracts the descriptor from the context, falling back to Load.
func FromContext(ctx context.Context) *Descriptor {
	if d, ok := ctx.Value(ctxKeyDescriptor).(*Descriptor); ok && d != nil {
		return d
	}
	return Load()
}
