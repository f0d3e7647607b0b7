package main

import (
	"fmt"

	"github.com/iver-wharf/temperatures"
)

func main() {
	version, err := temperatures.GetVersion()
	if err != nil {
		fmt.Println("Failed to load version:", err)
	}
	execute(version)
}
