package main

import "github.com/jwalitptl/clinic-booking/cmd/clinicctl/cmd"

func main() {
	cmd.Execute()
}
