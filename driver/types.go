package driver

import "cubepir/pir"

// TestConfig tells a server driver how to build its database. The database
// contents are derived from DBSeed so client and server can agree on them
// without shipping the bytes over the wire.
type TestConfig struct {
	Pir    pir.Config
	DBSeed uint64
}

// RegisterKeysReq carries a client's marshaled evaluation key set.
type RegisterKeysReq struct {
	ClientID uint64
	Keys     []byte
}

// QueryReq carries one marshaled compact query.
type QueryReq struct {
	ClientID uint64
	Query    []byte
}

// QueryResp carries the marshaled reply and the per-request server metrics.
type QueryResp struct {
	Reply   []byte
	Metrics pir.ReplyMetrics
}
