package main

import "db-sync/cmd"

func main() {
	cmd.Execute()
}
