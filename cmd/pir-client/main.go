package main

import (
	"bytes"
	"flag"
	"log"

	"github.com/fatih/color"

	"cubepir/driver"
	"cubepir/pir"
)

func main() {
	config := new(driver.Config)
	config.AddPirFlags().AddClientFlags()
	index := flag.Int("index", 42, "Item index to retrieve")
	configure := flag.Bool("configure", true, "(Re)configure the remote database before querying")
	config.Parse()

	if config.ServerAddr == "" {
		log.Fatal("Missing -serverAddr")
	}

	params, err := pir.DeriveParams(config.PirConfig())
	if err != nil {
		log.Fatalf("Failed to derive parameters: %s", err)
	}

	server, err := config.ServerDriver()
	if err != nil {
		log.Fatalf("Failed to connect to %s: %s", config.ServerAddr, err)
	}

	var none int
	if *configure {
		if err := server.Configure(config.TestConfig, &none); err != nil {
			log.Fatalf("Failed to configure server: %s", err)
		}
	}

	client := pir.NewClient(params)
	keysBlob, err := client.GenerateKeys().MarshalBinary()
	if err != nil {
		log.Fatalf("Failed to marshal keys: %s", err)
	}
	if err := server.RegisterKeys(driver.RegisterKeysReq{ClientID: 1, Keys: keysBlob}, &none); err != nil {
		log.Fatalf("Failed to register keys: %s", err)
	}

	query, err := client.GenerateQuery(*index)
	if err != nil {
		log.Fatalf("Failed to generate query: %s", err)
	}
	queryBlob, err := query.MarshalBinary()
	if err != nil {
		log.Fatalf("Failed to marshal query: %s", err)
	}

	var resp driver.QueryResp
	if err := server.Answer(driver.QueryReq{ClientID: 1, Query: queryBlob}, &resp); err != nil {
		log.Fatalf("Failed to get reply: %s", err)
	}

	var reply pir.Reply
	if err := reply.UnmarshalBinary(resp.Reply); err != nil {
		log.Fatalf("Failed to unmarshal reply: %s", err)
	}
	item, err := client.ExtractItem(&reply, *index)
	if err != nil {
		log.Fatalf("Failed to extract item: %s", err)
	}

	log.Printf("Query: %d bytes up, %d bytes down, server time %s",
		len(queryBlob), len(resp.Reply), resp.Metrics.Total)

	expected := pir.MakeItem(config.DBSeed, *index, params.ItemSize)
	if bytes.Equal(item, expected) {
		color.Green("Item %d retrieved correctly (%d bytes)", *index, len(item))
	} else {
		color.Red("Item %d MISMATCH", *index)
	}
}
