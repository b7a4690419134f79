// Package strategy owns the active placement strategy: the registry that
// holds it, the validator that vets and installs replacements, and the
// executor that runs it for a task.
package strategy
