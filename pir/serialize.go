package pir

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
)

// Wire format: every object is a sequence of frames, each a big-endian
// uint32 length followed by that many bytes of the element's own binary
// encoding. Collections start with a uint32 count frame-free header.

func writeFrame(buf *bytes.Buffer, m encoding.BinaryMarshaler) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	buf.Write(hdr[:])
	buf.Write(data)
	return nil
}

func readFrame(buf *bytes.Reader, m encoding.BinaryUnmarshaler) error {
	var hdr [4]byte
	if _, err := io.ReadFull(buf, hdr[:]); err != nil {
		return err
	}
	// Lengths come off the wire; never allocate more than the input can
	// actually back.
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n > buf.Len() {
		return fmt.Errorf("frame of %d bytes exceeds %d remaining", n, buf.Len())
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(buf, data); err != nil {
		return err
	}
	return m.UnmarshalBinary(data)
}

func writeCount(buf *bytes.Buffer, n int) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(n))
	buf.Write(hdr[:])
}

func readCount(buf *bytes.Reader) (int, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(buf, hdr[:]); err != nil {
		return 0, err
	}
	// Every element still owes a 4-byte frame header, which bounds any
	// honest count by the remaining input.
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n > buf.Len()/4 {
		return 0, fmt.Errorf("element count %d exceeds remaining input", n)
	}
	return n, nil
}

// MarshalBinary encodes the query as a counted sequence of framed
// ciphertexts.
func (q *Query) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeCount(&buf, len(q.Cts))
	for i, ct := range q.Cts {
		if err := writeFrame(&buf, ct); err != nil {
			return nil, fmt.Errorf("marshaling query ciphertext %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a query produced by MarshalBinary.
func (q *Query) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	n, err := readCount(buf)
	if err != nil {
		return fmt.Errorf("unmarshaling query: %w", err)
	}
	q.Cts = make([]*rlwe.Ciphertext, n)
	for i := range q.Cts {
		q.Cts[i] = new(rlwe.Ciphertext)
		if err := readFrame(buf, q.Cts[i]); err != nil {
			return fmt.Errorf("unmarshaling query ciphertext %d: %w", i, err)
		}
	}
	return nil
}

// MarshalBinary encodes the reply as a counted sequence of framed
// ciphertexts.
func (r *Reply) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeCount(&buf, len(r.Cts))
	for i, ct := range r.Cts {
		if err := writeFrame(&buf, ct); err != nil {
			return nil, fmt.Errorf("marshaling reply ciphertext %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a reply produced by MarshalBinary.
func (r *Reply) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	n, err := readCount(buf)
	if err != nil {
		return fmt.Errorf("unmarshaling reply: %w", err)
	}
	r.Cts = make([]*rlwe.Ciphertext, n)
	for i := range r.Cts {
		r.Cts[i] = new(rlwe.Ciphertext)
		if err := readFrame(buf, r.Cts[i]); err != nil {
			return fmt.Errorf("unmarshaling reply ciphertext %d: %w", i, err)
		}
	}
	return nil
}

// MarshalBinary encodes the key set: counted framed automorphism keys
// followed by a presence byte and, if set, the framed relinearization key.
func (k *ClientKeys) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeCount(&buf, len(k.Galois))
	for i, gk := range k.Galois {
		if err := writeFrame(&buf, gk); err != nil {
			return nil, fmt.Errorf("marshaling automorphism key %d: %w", i, err)
		}
	}
	if k.Relin == nil {
		buf.WriteByte(0)
		return buf.Bytes(), nil
	}
	buf.WriteByte(1)
	if err := writeFrame(&buf, k.Relin); err != nil {
		return nil, fmt.Errorf("marshaling relinearization key: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a key set produced by MarshalBinary.
func (k *ClientKeys) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	n, err := readCount(buf)
	if err != nil {
		return fmt.Errorf("unmarshaling key set: %w", err)
	}
	k.Galois = make([]*rlwe.GaloisKey, n)
	for i := range k.Galois {
		k.Galois[i] = new(rlwe.GaloisKey)
		if err := readFrame(buf, k.Galois[i]); err != nil {
			return fmt.Errorf("unmarshaling automorphism key %d: %w", i, err)
		}
	}
	present, err := buf.ReadByte()
	if err != nil {
		return fmt.Errorf("unmarshaling key set: %w", err)
	}
	if present == 0 {
		k.Relin = nil
		return nil
	}
	k.Relin = new(rlwe.RelinearizationKey)
	if err := readFrame(buf, k.Relin); err != nil {
		return fmt.Errorf("unmarshaling relinearization key: %w", err)
	}
	return nil
}
