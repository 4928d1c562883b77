package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	parser := flags.NewParser(nil, flags.Default)

	_, err := parser.AddCommand("buy",
		"buy NFTs in one bundle",
		"The buy command resolves the cheapest sell order for every token id, signs one "+
			"settlement transaction per order and submits them as a Flashbots bundle, "+
			"or one by one to the public mempool when no relay is configured.",
		&Buy{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_, err = parser.AddCommand("prices",
		"print current sell prices",
		"The prices command prints token_id,price CSV rows for the cheapest active orders of every token id.",
		&Prices{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_, err = parser.AddCommand("deploy",
		"deploy the ownership verifier",
		"The deploy command publishes the ownership verifier contract from a compiled bytecode file "+
			"and prints its address for BRIBER_ADDRESS.",
		&Deploy{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
