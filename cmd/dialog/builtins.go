package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	orchestrator "github.com/borosabel/orchestrator"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// registerBuiltins installs the generic skills and validators domain
// configs can bind to without shipping any code of their own.
func registerBuiltins(o *orchestrator.Orchestrator) {
	reg := o.Skills()

	reg.Register("builtin.greet", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "Hello! How can I help you today?", nil
	})
	reg.Register("builtin.exit", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "Goodbye! Talk to you soon.", nil
	})
	reg.Register("builtin.unknown", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "I'm sorry, I didn't quite catch that. Could you rephrase?", nil
	})
	reg.Register("builtin.echo", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		if len(fields) == 0 {
			return "Noted.", nil
		}
		pairs := make([]string, 0, len(fields))
		for _, k := range fields.Keys() {
			v, _ := fields.GetString(k)
			pairs = append(pairs, fmt.Sprintf("%s: %s", strings.ReplaceAll(k, "_", " "), v))
		}
		return "Here's what I have: " + strings.Join(pairs, ", ") + ".", nil
	})

	o.Validators().Register("positive_number", func(v domain.Value) error {
		n, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		if n <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	})
}
