package main

import "github.com/frahmantamala/staff-access/cmd"

func main() {
	cmd.Execute()
}
