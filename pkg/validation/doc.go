// Package validation is the field validation service consulted by flow
// sessions after every change. Rules use go-playground/validator tags plus an
// optional regular expression.
package validation
