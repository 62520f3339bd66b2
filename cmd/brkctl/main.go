// Command brkctl exercises and inspects the brkalloc allocator.
package main

func main() {
	execute()
}
