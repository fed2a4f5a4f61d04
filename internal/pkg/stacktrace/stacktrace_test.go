package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	// Arrange
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/x/y/internal/attendance/usecase.(*Usecase).ScanSubmit(...)
	/src/internal/attendance/usecase/scan_submit.go:42 +0x1a
main.main()
	/src/main.go:10 +0x1
`)

	// Act
	got := InternalPaths(stack)

	// Assert
	assert.Equal(t, []string{"internal/attendance/usecase/scan_submit.go:42"}, got)
}
