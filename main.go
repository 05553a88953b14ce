package main

import "github.com/fahry-ali/hadirku-deploy/cmd"

func main() {
	cmd.Execute()
}
