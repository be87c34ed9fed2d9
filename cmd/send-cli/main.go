package main

import "wallet-send/cmd/send-cli/cmd"

func main() {
	cmd.Execute()
}
