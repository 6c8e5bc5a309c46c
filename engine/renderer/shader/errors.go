package shader

import "fmt"

// ShaderError reports malformed shader source or a lookup against a layout that does not
// declare the requested name. It is a programmer error: the offending source has to be fixed,
// there is nothing to retry.
type ShaderError struct {
	// Message describes what is wrong.
	Message string

	// Text is the offending source text, usually the full marker. Empty when the error is not
	// tied to a single marker.
	Text string
}

func (e *ShaderError) Error() string {
	if e.Text == "" {
		return "shader: " + e.Message
	}
	return fmt.Sprintf("shader: %s in %q", e.Message, e.Text)
}

func shaderErrorf(text, format string, args ...any) *ShaderError {
	return &ShaderError{Message: fmt.Sprintf(format, args...), Text: text}
}
