// Package schema loads declarative form definitions from JSON or YAML files
// and turns them into form sections. Readonly and visibility flags may be
// literals or expressions over the model; validation is declared as rules.
package schema
