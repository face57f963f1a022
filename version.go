// Package magpie holds build metadata shared by the CLI.
package magpie

// Version is the released version of magpie.
const Version = "0.3.0"
