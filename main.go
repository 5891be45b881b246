// Package main is the entry point for the lasso CLI.
package main

import "lasso.dev/pkg/lasso/cmd"

func main() {
	cmd.Execute()
}
