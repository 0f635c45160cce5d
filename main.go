package main

import "github.com/Doudousmyle42/mangatracker/cmd"

func main() {
	cmd.Execute()
}
