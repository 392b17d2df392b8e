//go:build !debug_mem_utils

package memutils

// DebugValidation is true when the debug_mem_utils build tag is present and DebugValidate
// performs its checks
const DebugValidation = false

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
}
