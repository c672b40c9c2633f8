// forge/pkg/scripting/transform.go

package scripting

import (
	"fmt"
	"os"
	"time"

	"threathawk/forge/pkg/logging"
)

const (
	TransformName  = "transform"
	TransformParam = "fragment"
)

// stripCodeFence removes a surrounding ``` fence, which drafting services often
// wrap rule text in. Transform scripts can call it.
var stripCodeFence = Script{
	Params: []string{"text"},
	Body: "var m = /^\\s*```[a-zA-Z]*\\s*\\n([\\s\\S]*?)\\n?```\\s*$/.exec(text);" +
		" return m ? m[1] : text;",
}

// NewTransformVM returns a VM with the import helpers registered and, when body
// is not empty, the transform script installed. The body receives the drafted
// text as `fragment` and must return a string.
func NewTransformVM(body string) (*SafeVM, error) {
	vm := NewSafeVM()
	if err := vm.RegisterGlobalFunction("stripCodeFence", stripCodeFence); err != nil {
		return nil, logging.NewError(logging.ErrorTypeScript, "failed to register helpers", err, nil)
	}
	if body == "" {
		return vm, nil
	}
	if err := vm.SetScript(TransformName, Script{Params: []string{TransformParam}, Body: body}); err != nil {
		return nil, logging.NewError(logging.ErrorTypeScript, "invalid transform script", err, nil)
	}
	return vm, nil
}

// LoadTransformVM reads the transform body from path.
func LoadTransformVM(path string) (*SafeVM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeScript, "failed to read transform script", err,
			map[string]interface{}{"path": path})
	}
	return NewTransformVM(string(data))
}

// HasTransform reports whether a transform script is installed.
func (s *SafeVM) HasTransform() bool {
	_, ok := s.scripts[TransformName]
	return ok
}

// TransformText runs the transform over text. Without a transform script the
// text is returned as is.
func (s *SafeVM) TransformText(text string, timeout time.Duration) (string, error) {
	if !s.HasTransform() {
		return text, nil
	}
	result, err := s.RunScript(TransformName, map[string]interface{}{TransformParam: text}, timeout)
	if err != nil {
		return "", logging.NewError(logging.ErrorTypeScript, "transform script failed", err, nil)
	}
	out, ok := result.(string)
	if !ok {
		return "", logging.NewError(logging.ErrorTypeScript, fmt.Sprintf("transform returned %T, want string", result), nil, nil)
	}
	return out, nil
}
