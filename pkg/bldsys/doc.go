// Package bldsys implements a small build orchestrator for multi-language
// projects. A project declares its modules in a Starlark projectfile; each
// module ships a build script that receives a shared project context and
// runs its commands through an embedded, portable shell runtime
// (mvdan.cc/sh). Every step is timed and the collected durations are saved
// as a CSV report at the end of each run.
package bldsys
