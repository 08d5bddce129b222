// Package logging builds the zerolog.Logger handed to every component.
//
// Components never use a global logger; they receive one through their
// Options.
package logging
