package rpc

import "github.com/ugorji/go/codec"

// CodecHandle returns the wire codec shared by client and server. Protocol
// payloads travel as pre-marshaled byte blobs, so the handle only ever sees
// flat structs.
func CodecHandle() codec.Handle {
	h := codec.BincHandle{}
	h.StructToArray = true
	h.OptimumSize = true
	return &h
}
