// Package main provides the entry point for the DarkWebNote CLI.
package main

func main() {
	Execute()
}
