// Command scoutctl inspects and operates a running ScoutBot over its HTTP API.
package main

func main() {
	Execute()
}
