package descriptor

// SetReconstruct replaces how Check rebuilds descriptors and returns a func restoring the original.
func SetReconstruct(f func(Document) (*Descriptor, error)) func() {
	prev := reconstruct
	reconstruct = f
	return func() { reconstruct = prev }
}
