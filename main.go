package main

import "github.com/pders01/repo-mechanic/cmd"

func main() {
	cmd.Execute()
}
