package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyQ     = 81  // Q key (ASCII), cycles the quality mode
	KeyR     = 82  // R key (ASCII), cycles the rendering path
	KeyU     = 85  // U key (ASCII), toggles the upscaler
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)

	Key1 = 49 // 1 key (ASCII), quality
	Key2 = 50 // 2 key (ASCII), balanced
	Key3 = 51 // 3 key (ASCII), performance
	Key4 = 52 // 4 key (ASCII), ultra performance
)
