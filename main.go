package main

import "github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/cmd"

func main() {
	cmd.Execute()
}
