// Package scripted turns declarative operation definitions into soap
// operations whose outputs are expr-lang expressions over the inputs.
//
// Every declared input is visible to expressions under its own name, typed by
// its declared kind: integer kinds as int64 or uint64, decimal as float64,
// boolean as bool and everything else as string. Expressions are compiled
// once, when the operation is built, and results are converted to the
// declared output kind.
//
//	ops, err := scripted.BuildAll(cfg.Operations, scripted.NewCompiler())
//	if err != nil {
//	    return err
//	}
//	if err := engine.Registry().Replace(ops); err != nil {
//	    return err
//	}
package scripted
