// forge/pkg/scripting/safe_vm.go

package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/robertkrimen/otto"

	"threathawk/forge/pkg/logging"
)

// Script is a JavaScript function body with named parameters.
type Script struct {
	Params []string `json:"params"`
	Body   string   `json:"body"`
}

var (
	ErrScriptNotFound = errors.New("script not found")
	ErrTimeout        = errors.New("script execution timed out")
)

var errHalt = errors.New("halt")

type SafeVM struct {
	vm      *otto.Otto
	scripts map[string]Script
}

func NewSafeVM() *SafeVM {
	vm := otto.New()

	// Remove potentially dangerous functions
	vm.Set("eval", otto.UndefinedValue())
	vm.Set("Function", otto.UndefinedValue())

	return &SafeVM{
		vm:      vm,
		scripts: make(map[string]Script),
	}
}

func (s *SafeVM) SetScript(name string, script Script) error {
	if strings.TrimSpace(script.Body) == "" {
		return fmt.Errorf("script %s has an empty body", name)
	}
	logging.Logger.Debug().Str("scriptName", name).Msg("Setting script")
	s.scripts[name] = script
	return nil
}

// RunScript calls the named script with params matched to its parameter names.
// A script still running after timeout is interrupted.
func (s *SafeVM) RunScript(name string, params map[string]interface{}, timeout time.Duration) (interface{}, error) {
	script, ok := s.scripts[name]
	if !ok {
		logging.Logger.Error().Str("scriptName", name).Msg("Script not found")
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}

	funcDef := fmt.Sprintf("(function(%s) { %s })", strings.Join(script.Params, ","), script.Body)
	logging.Logger.Debug().Str("scriptName", name).Str("funcDef", funcDef).Msg("Defined function")

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)

	interrupt := make(chan func(), 1)
	s.vm.Interrupt = interrupt
	defer func() { s.vm.Interrupt = nil }()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if r == errHalt {
					done <- outcome{err: ErrTimeout}
				} else {
					done <- outcome{err: fmt.Errorf("script panicked: %v", r)}
				}
			}
		}()

		s.vm.SetStackDepthLimit(1000)

		value, err := s.vm.Eval(funcDef)
		if err != nil {
			done <- outcome{err: fmt.Errorf("error evaluating function: %w", err)}
			return
		}

		args := make([]interface{}, len(script.Params))
		for i, param := range script.Params {
			args[i] = params[param]
		}

		result, err := value.Call(otto.NullValue(), args...)
		if err != nil {
			done <- outcome{err: err}
			return
		}

		exported, err := result.Export()
		if err != nil {
			done <- outcome{err: fmt.Errorf("error exporting result: %w", err)}
			return
		}
		if f, ok := exported.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			logging.Logger.Warn().Str("scriptName", name).Float64("result", f).Msg("Script produced Inf or NaN value")
			done <- outcome{err: fmt.Errorf("script produced invalid numeric result")}
			return
		}
		done <- outcome{value: exported}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			logging.Logger.Error().Err(o.err).Str("scriptName", name).Msg("Script execution error")
		}
		return o.value, o.err
	case <-time.After(timeout):
		interrupt <- func() { panic(errHalt) }
		<-done
		logging.Logger.Error().Str("scriptName", name).Dur("timeout", timeout).Msg("Script execution timed out")
		return nil, ErrTimeout
	}
}

// RegisterGlobalFunction defines a named function every script can call.
func (s *SafeVM) RegisterGlobalFunction(name string, script Script) error {
	funcDef := fmt.Sprintf("function %s(%s) { %s }", name, strings.Join(script.Params, ","), script.Body)
	_, err := s.vm.Run(funcDef)
	if err != nil {
		return fmt.Errorf("failed to register global function: %w", err)
	}
	return nil
}
