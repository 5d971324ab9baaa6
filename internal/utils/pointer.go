package utils

// Ptr returns a pointer to v. Optional generation controls (temperature,
// topK, thinking budget, ...) are modelled as pointers so that "unset" and
// "zero" stay distinguishable; Ptr fills them from literals.
//
// Example:
//
//	budget := utils.Ptr(1024)
func Ptr[T any](v T) *T {
	return &v
}
