package extension

import (
	"fmt"

	"github.com/goliatone/go-twigview/pkg/options"
)

// Invoke runs every extension in order against env. The first lookup or
// extension failure stops the chain.
func Invoke(reg *Registry, exts []options.Extension, env Environment) error {
	if len(exts) == 0 {
		return nil
	}
	if reg == nil {
		reg = DefaultRegistry
	}

	for i, ext := range exts {
		fn, err := reg.Lookup(ext)
		if err != nil {
			return fmt.Errorf("extension %d (%s): %w", i, describe(ext), err)
		}
		if err := fn(env); err != nil {
			return fmt.Errorf("extension %d (%s): %w", i, describe(ext), err)
		}
	}
	return nil
}

func describe(ext options.Extension) string {
	if ext.File == "" {
		return ext.Func
	}
	return Key(ext.File, ext.Func)
}
