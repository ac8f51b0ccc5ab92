// Package main provides the msisim command, a directory-based MSI cache
// coherence simulator built on Akita.
package main

func main() {
	Execute()
}
