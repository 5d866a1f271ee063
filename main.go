package main

import "github.com/mickamy/dieselgen/cmd"

var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
