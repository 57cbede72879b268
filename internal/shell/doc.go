// Package shell runs external programs on behalf of the provisioning pipeline.
//
// Everything agkit spawns (package managers, python finalizers, linker scripts,
// the PowerShell archive fallback) goes through Runner so tests can replace it
// with the generated mock in package mocks.
package shell
