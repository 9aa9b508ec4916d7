// Package environment models the isolated dependency environment rooted at a
// project directory: where its artifacts live, whether it has been provisioned
// (the marker file), how to remove it, and the explicit activation context that
// child processes receive instead of a mutated process environment.
package environment
