package main

import "github.com/apolopay/payment-button-go/cmd"

func main() {
	cmd.Execute()
}
