package main

import "github.com/example/appt-booker/cmd"

func main() {
	cmd.Execute()
}
