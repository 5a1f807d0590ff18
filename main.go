package main

import "github.com/ijbmsm/charzing-payments/cmd"

func main() {
	cmd.Execute()
}
