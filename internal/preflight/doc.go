// Package preflight validates the runtime environment before pipeline work
// begins: external binaries resolve on PATH and working directories exist
// with usable permissions.
package preflight
