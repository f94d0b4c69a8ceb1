package main

import "github.com/personar/profile-service/cmd"

func main() {
	cmd.Execute()
}
