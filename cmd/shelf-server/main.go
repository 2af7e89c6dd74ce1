// Command shelf-server runs the Shelf asset management API.
package main

func main() {
	Execute()
}
