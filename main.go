package main

import "github.com/frahmantamala/equipment-tracker/cmd"

func main() {
	cmd.Execute()
}
