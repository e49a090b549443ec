package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/adapters/fabric"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "chaincode").Logger()

	chaincode, err := contractapi.NewChaincode(fabric.NewRequestContract(logger))
	if err != nil {
		log.Panicf("Error creating lifebank chaincode: %v", err)
	}

	if err := chaincode.Start(); err != nil {
		log.Panicf("Error starting lifebank chaincode: %v", err)
	}
}
