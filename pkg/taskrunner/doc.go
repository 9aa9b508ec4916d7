// Package taskrunner implements the venvx targets. `Default` provisions the
// environment only when its marker is absent, `Clean` removes every generated
// artifact, `Test` runs the static-analysis checks in order and stops at the
// first failure, and `Status` reports what is currently on disk. The runner
// receives its inspector, provisioner, and command executor as interfaces so
// CLI packages wire real collaborators once while unit tests swap in fakes.
package taskrunner
