// Package httpform serves mounted forms over HTTP with chi. Each visitor gets
// a session holding one form instance; browsers post the whole form and JSON
// clients post partial bodies, but only values that differ from the live model
// are fed through the instance's setters.
package httpform
