package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cubepir/driver"
	"cubepir/rpc"
)

func main() {
	config := new(driver.Config)
	config.AddPirFlags().AddServerFlags()
	config.Parse()

	drv, err := driver.NewServerDriver()
	if err != nil {
		log.Fatalf("Failed to create server driver: %s", err)
	}

	server, err := rpc.NewServer(config.Port)
	if err != nil {
		log.Fatalf("Failed to listen on port %d: %s", config.Port, err)
	}
	if err := server.RegisterName("PirServer", drv); err != nil {
		log.Fatalf("Failed to register PirServer: %s", err)
	}

	prof := driver.NewProfiler(config.CpuProfile)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		prof.Close()
		server.Close()
		os.Exit(0)
	}()

	if err := server.Serve(); err != nil {
		log.Fatalf("Failed to serve: %s", err)
	}
}
