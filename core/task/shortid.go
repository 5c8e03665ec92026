package task

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

const shortIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ShortID derives the 3-character display id for a task: a 4-byte BLAKE2b
// digest of "<taskID>:<userID>" read as a big-endian integer and rendered
// in base 36, most significant digit first. The id is not unique, it
// exists so users can refer to a task in conversation.
func ShortID(taskID, userID string) string {
	h, err := blake2b.New(4, nil)
	if err != nil {
		panic(err) // only fails on invalid digest size
	}
	h.Write([]byte(taskID + ":" + userID))
	n := binary.BigEndian.Uint32(h.Sum(nil))

	var buf [3]byte
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = shortIDAlphabet[n%36]
		n /= 36
	}
	return string(buf[:])
}
