package skeleton

// SkeletonBuilderOption is a functional option for configuring a Skeleton via NewSkeleton.
type SkeletonBuilderOption func(*skeleton)

// WithMatrixLayout is an option builder that sets the per-bone layout of the bone-matrix buffer.
// Defaults to MatrixLayoutMat4x4.
//
// Parameters:
//   - layout: the layout negotiated with the renderer
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the layout option to a skeleton
func WithMatrixLayout(layout MatrixLayout) SkeletonBuilderOption {
	return func(s *skeleton) {
		s.layout = layout
	}
}

// WithBinding is an option builder that sets the bind group binding index used when staging
// bone-matrix writes.
//
// Parameters:
//   - binding: the binding index of the bone-matrix storage buffer
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the binding option to a skeleton
func WithBinding(binding int) SkeletonBuilderOption {
	return func(s *skeleton) {
		s.binding = binding
	}
}
