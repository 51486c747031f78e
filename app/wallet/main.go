package main

import "github.com/fluerion/node/app/wallet/cmd"

func main() {
	cmd.Execute()
}
