//go:build !(windows && cgo)

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "overlayhook is a Windows DLL; build it with -buildmode=c-shared and cgo enabled")
	os.Exit(1)
}
