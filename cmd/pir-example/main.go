package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/fatih/color"

	"cubepir/driver"
	"cubepir/pir"
)

// End-to-end local walkthrough: build a database, run one private
// retrieval against it, and print the per-stage costs.
func main() {
	config := new(driver.Config)
	config.AddPirFlags()
	index := flag.Int("index", 42000, "Item index to retrieve")
	config.Parse()

	cfg := config.PirConfig()
	params, err := pir.DeriveParams(cfg)
	if err != nil {
		log.Fatalf("Failed to derive parameters: %s", err)
	}

	bold := color.New(color.Bold)
	bold.Printf("Database: %d items of %s (%s total)\n",
		cfg.NumItems,
		datasize.ByteSize(cfg.ItemSize).HR(),
		datasize.ByteSize(cfg.NumItems*cfg.ItemSize).HR())
	fmt.Printf("Ring degree 2^%d, plaintext modulus %d, %d bits per coefficient\n",
		cfg.LogDegree, params.PlainModulus(), cfg.CoeffBits)
	fmt.Printf("Hypercube %v over %d units, noise margin %d bits\n",
		params.DimSizes, params.NumUnits, params.NoiseBudget())

	raw := pir.MakeRawDB(config.DBSeed, cfg.NumItems, cfg.ItemSize)

	server := pir.NewServer(params)
	if err := server.SetDatabase(raw); err != nil {
		log.Fatalf("Failed to set database: %s", err)
	}
	start := time.Now()
	if err := server.Preprocess(); err != nil {
		log.Fatalf("Failed to preprocess: %s", err)
	}
	fmt.Printf("Preprocessing: %s\n", time.Since(start))

	client := pir.NewClient(params)
	start = time.Now()
	keys := client.GenerateKeys()
	fmt.Printf("Key generation: %s\n", time.Since(start))
	if err := server.RegisterKeys(1, keys); err != nil {
		log.Fatalf("Failed to register keys: %s", err)
	}

	start = time.Now()
	query, err := client.GenerateQuery(*index)
	if err != nil {
		log.Fatalf("Failed to generate query: %s", err)
	}
	fmt.Printf("Query generation: %s\n", time.Since(start))
	queryBlob, err := query.MarshalBinary()
	if err != nil {
		log.Fatalf("Failed to marshal query: %s", err)
	}
	fmt.Printf("Query size: %s (%d ciphertexts)\n",
		datasize.ByteSize(len(queryBlob)).HR(), params.QueryCiphertexts())

	reply, metrics, err := server.GenerateReply(context.Background(), query, 1)
	if err != nil {
		log.Fatalf("Failed to generate reply: %s", err)
	}
	fmt.Printf("Reply generation: %s\n", metrics.Total)
	fmt.Printf("  expansion:       %s\n", metrics.Expansion)
	fmt.Printf("  query transform: %s\n", metrics.QueryTransform)
	fmt.Printf("  multiply:        %s\n", metrics.Multiply)
	fmt.Printf("  add:             %s\n", metrics.Add)
	fmt.Printf("  relinearize:     %s\n", metrics.Relinearize)
	fmt.Printf("  construction:    %s\n", metrics.Construction)
	replyBlob, err := reply.MarshalBinary()
	if err != nil {
		log.Fatalf("Failed to marshal reply: %s", err)
	}
	fmt.Printf("Reply size: %s\n", datasize.ByteSize(len(replyBlob)).HR())

	start = time.Now()
	item, err := client.ExtractItem(reply, *index)
	if err != nil {
		log.Fatalf("Failed to decode reply: %s", err)
	}
	fmt.Printf("Reply decoding: %s\n", time.Since(start))

	want := raw[*index*cfg.ItemSize : (*index+1)*cfg.ItemSize]
	if bytes.Equal(item, want) {
		color.Green("Item %d retrieved correctly", *index)
	} else {
		color.Red("Item %d MISMATCH", *index)
	}
}
