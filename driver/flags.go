package driver

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/c2h5oh/datasize"

	"cubepir/pir"
)

type Config struct {
	TestConfig

	CpuProfile string

	// For client
	ServerAddr    string
	UsePersistent bool

	// For server
	Port int

	itemSizeStr string

	FlagSet *flag.FlagSet
}

func (c *Config) AddPirFlags() *Config {
	c.FlagSet = flag.CommandLine
	c.FlagSet.IntVar(&c.Pir.NumItems, "numItems", 96151, "Number of database items")
	c.FlagSet.StringVar(&c.itemSizeStr, "itemSize", "15KB", "Item size, e.g. 288B or 15KB")
	c.FlagSet.IntVar(&c.Pir.LogDegree, "logDegree", 12, "Log2 of the polynomial degree")
	c.FlagSet.IntVar(&c.Pir.CoeffBits, "coeffBits", 30, "Database bits packed per plaintext coefficient")
	c.FlagSet.IntVar(&c.Pir.Dims, "dims", 2, "Number of hypercube dimensions")
	c.FlagSet.Uint64Var(&c.DBSeed, "dbSeed", 17, "Seed of the generated database")
	c.FlagSet.StringVar(&c.CpuProfile, "cpuprofile", "", "write cpu profile to `file`")
	return c
}

func (c *Config) AddClientFlags() *Config {
	c.FlagSet.StringVar(&c.ServerAddr, "serverAddr", "", "<HOSTNAME>:<PORT> of server for RPC test")
	c.FlagSet.BoolVar(&c.UsePersistent, "persistent", true, "Should use persistent connection to server")
	return c
}

func (c *Config) AddServerFlags() *Config {
	c.FlagSet.IntVar(&c.Port, "p", 12345, "Listening port")
	return c
}

func (c *Config) Parse() *Config {
	if c.FlagSet.Parsed() {
		return c
	}
	if err := c.FlagSet.Parse(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(c.itemSizeStr)); err != nil {
		log.Fatalf("Bad itemSize: %s", c.itemSizeStr)
	}
	c.Pir.ItemSize = int(size.Bytes())
	return c
}

// ServerDriver returns either a local in-process driver or a proxy to a
// remote one, depending on whether a server address was given.
func (c *Config) ServerDriver() (PirServerDriver, error) {
	c.Parse()
	if c.ServerAddr != "" {
		return NewRpcProxy(c.ServerAddr, c.UsePersistent)
	}
	return NewServerDriver()
}

func (c *Config) String() string {
	return fmt.Sprintf("n=%d,size=%s,d=%d",
		c.Pir.NumItems, datasize.ByteSize(c.Pir.ItemSize).HR(), c.Pir.Dims)
}

// PirConfig is the parameter configuration the flags describe.
func (c *Config) PirConfig() pir.Config {
	c.Parse()
	return c.Pir
}
