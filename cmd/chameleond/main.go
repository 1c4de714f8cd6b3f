// Chameleond drives the Chameleon display-sink test fixture.
package main

func main() {
	Execute()
}
