package main

import "weighbridge-backend/internal/cli"

func main() {
	cli.Execute()
}
