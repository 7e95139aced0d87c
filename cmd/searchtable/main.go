// Package main is the entry point for the searchtable server and CLI.
package main

func main() {
	Execute()
}
