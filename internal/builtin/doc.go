// Package builtin holds the services that ship inside the broker binary.
//
// Each Definition pairs a catalog manifest with a constructor. The registry
// is consumed by the in-process runner and by the builtins package service,
// which hosts any registered builtin on behalf of a manifest that names it
// as its package.
package builtin
